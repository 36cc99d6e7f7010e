package windowstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"

	"record-sync/core/storage"
)

type windowObject struct {
	Mapping string    `json:"mapping"`
	End     time.Time `json:"end"`
}

// ObjectStore keeps one JSON object per mapping under a bucket prefix.
type ObjectStore struct {
	client storage.Client
	bucket string
	prefix string
}

func NewObjectStore(client storage.Client, bucket, prefix string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket, prefix: prefix}
}

func (o *ObjectStore) objectName(mapping string) string {
	return o.prefix + mapping + ".json"
}

func (o *ObjectStore) Load(ctx context.Context, mapping string) (time.Time, error) {
	obj, err := o.read(ctx, o.objectName(mapping))
	if err != nil {
		if storage.IsNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, errors.Wrapf(err, "load window for %s", mapping)
	}
	return obj.End.UTC(), nil
}

func (o *ObjectStore) Save(ctx context.Context, mapping string, end time.Time) error {
	data, err := json.Marshal(windowObject{Mapping: mapping, End: end.UTC()})
	if err != nil {
		return errors.Wrap(err, "encode window")
	}
	_, err = o.client.PutObject(ctx, o.bucket, o.objectName(mapping), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "save window for %s", mapping)
	}
	return nil
}

func (o *ObjectStore) Reset(ctx context.Context, mapping string) error {
	err := o.client.RemoveObject(ctx, o.bucket, o.objectName(mapping), minio.RemoveObjectOptions{})
	if err != nil && !storage.IsNotFound(err) {
		return errors.Wrapf(err, "reset window for %s", mapping)
	}
	return nil
}

func (o *ObjectStore) List(ctx context.Context) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for info := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: o.prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, errors.Wrap(info.Err, "list windows")
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		obj, err := o.read(ctx, info.Key)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			return nil, errors.Wrapf(err, "read window object %s", info.Key)
		}
		out[obj.Mapping] = obj.End.UTC()
	}
	return out, nil
}

func (o *ObjectStore) read(ctx context.Context, name string) (windowObject, error) {
	var obj windowObject
	reader, err := o.client.GetObject(ctx, o.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return obj, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return obj, err
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return obj, errors.Wrapf(err, "decode window object %s", name)
	}
	return obj, nil
}
