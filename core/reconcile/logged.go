package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logged wraps a record type so that every write (create, update, mark
// synced, destroy) emits a structured log entry. Instances returned by the
// wrapped record type are wrapped as well.
func Logged(rt RecordType, logger *zap.Logger) RecordType {
	l := &loggedRecordType{
		inner:  rt,
		logger: logger.With(zap.String("record_type", rt.Name()), zap.Stringer("side", rt.Side())),
	}
	if finder, ok := rt.(NativeFinder); ok {
		return &loggedNativeRecordType{loggedRecordType: l, finder: finder}
	}
	return l
}

type loggedRecordType struct {
	inner  RecordType
	logger *zap.Logger
}

func (l *loggedRecordType) Name() string { return l.inner.Name() }
func (l *loggedRecordType) Side() Side   { return l.inner.Side() }

func (l *loggedRecordType) Find(ctx context.Context, remoteID string) (Instance, error) {
	inst, err := l.inner.Find(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return l.wrap(inst), nil
}

func (l *loggedRecordType) All(ctx context.Context, q Query) ([]Instance, error) {
	start := time.Now()
	items, err := l.inner.All(ctx, q)
	if err != nil {
		l.logger.Warn("Query failed", zap.Error(err))
		return nil, err
	}
	l.logger.Debug("Queried records",
		zap.Int("count", len(items)),
		zap.Time("after", q.After),
		zap.Time("before", q.Before),
		zap.Duration("elapsed", time.Since(start)))
	out := make([]Instance, len(items))
	for i, inst := range items {
		out[i] = l.wrap(inst)
	}
	return out, nil
}

func (l *loggedRecordType) Create(ctx context.Context, attrs Attributes) (Instance, error) {
	inst, err := l.inner.Create(ctx, attrs)
	if err != nil {
		l.logger.Warn("Create failed", zap.Any("attributes", attrs), zap.Error(err))
		return nil, err
	}
	l.logger.Info("Created record",
		zap.String("id", inst.ID()),
		zap.String("remote_id", inst.RemoteID()),
		zap.Any("attributes", attrs))
	return l.wrap(inst), nil
}

func (l *loggedRecordType) DestroyAll(ctx context.Context, remoteIDs []string) error {
	if err := l.inner.DestroyAll(ctx, remoteIDs); err != nil {
		l.logger.Warn("Destroy failed", zap.Strings("remote_ids", remoteIDs), zap.Error(err))
		return err
	}
	l.logger.Info("Destroyed records", zap.Strings("remote_ids", remoteIDs))
	return nil
}

func (l *loggedRecordType) HasField(ctx context.Context, name string) (bool, error) {
	return l.inner.HasField(ctx, name)
}

func (l *loggedRecordType) wrap(inst Instance) Instance {
	if inst == nil {
		return nil
	}
	if _, ok := inst.(*loggedInstance); ok {
		return inst
	}
	return &loggedInstance{Instance: inst, logger: l.logger}
}

type loggedNativeRecordType struct {
	*loggedRecordType
	finder NativeFinder
}

func (l *loggedNativeRecordType) FindNative(ctx context.Context, id string) (Instance, error) {
	inst, err := l.finder.FindNative(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.wrap(inst), nil
}

type loggedInstance struct {
	Instance
	logger *zap.Logger
}

func (l *loggedInstance) Update(ctx context.Context, attrs Attributes) (Instance, error) {
	inst, err := l.Instance.Update(ctx, attrs)
	if err != nil {
		l.logger.Warn("Update failed",
			zap.String("id", l.ID()),
			zap.Any("attributes", attrs),
			zap.Error(err))
		return nil, err
	}
	l.logger.Info("Updated record",
		zap.String("id", l.ID()),
		zap.String("remote_id", inst.RemoteID()),
		zap.Any("attributes", attrs))
	return &loggedInstance{Instance: inst, logger: l.logger}, nil
}

func (l *loggedInstance) MarkSynced(ctx context.Context) error {
	if err := l.Instance.MarkSynced(ctx); err != nil {
		l.logger.Warn("Mark synced failed", zap.String("id", l.ID()), zap.Error(err))
		return err
	}
	l.logger.Debug("Marked synced", zap.String("id", l.ID()))
	return nil
}
