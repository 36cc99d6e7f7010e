package remote_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"record-sync/core/reconcile"
	"record-sync/feature/remote"
)

const apiPath = "/services/data/v59.0"

var fromClause = regexp.MustCompile(`FROM (\w+)`)

// fakeAPI is a small in-memory stand-in for the CRM REST API. Queries return
// every record of the type, two per page.
type fakeAPI struct {
	mu        sync.Mutex
	now       time.Time
	seq       int
	records   map[string]map[string]reconcile.Attributes
	fields    map[string][]string
	queries   []string
	describes int
	calls     map[string]int
	failures  map[string][]int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		records:  make(map[string]map[string]reconcile.Attributes),
		fields:   map[string][]string{"Contact": {"Id", "FirstName", "LastName", "AccountId", "SystemModstamp", "Last_Sync__c"}},
		calls:    make(map[string]int),
		failures: make(map[string][]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+apiPath+"/query", f.query)
	mux.HandleFunc("GET "+apiPath+"/query/{cursor}", f.nextPage)
	mux.HandleFunc("GET "+apiPath+"/sobjects/{type}/describe", f.describe)
	mux.HandleFunc("GET "+apiPath+"/sobjects/{type}/{id}", f.get)
	mux.HandleFunc("POST "+apiPath+"/sobjects/{type}", f.create)
	mux.HandleFunc("PATCH "+apiPath+"/sobjects/{type}/{id}", f.update)
	mux.HandleFunc("DELETE "+apiPath+"/sobjects/{type}/{id}", f.delete)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			writeJSON(w, http.StatusUnauthorized, []map[string]string{{"errorCode": "INVALID_SESSION_ID", "message": "Session expired"}})
			return
		}
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiPath)
		f.mu.Lock()
		f.calls[key]++
		var status int
		if queue := f.failures[r.Method]; len(queue) > 0 {
			status, f.failures[r.Method] = queue[0], queue[1:]
		}
		f.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, []map[string]string{{"errorCode": "SERVER_UNAVAILABLE", "message": "try later"}})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func newClient(f *fakeAPI, srv *httptest.Server) *remote.Client {
	return remote.NewClient(remote.Config{
		BaseURL:              srv.URL,
		APIPath:              apiPath,
		Token:                "secret",
		TimeoutSeconds:       5,
		RetryCount:           1,
		ModstampField:        "SystemModstamp",
		SyncMarkerField:      "Last_Sync__c",
		SyncMarkerLeadMillis: 2000,
	}, remote.WithClock(f.clock))
}

// failNext makes the next requests with method answer the given statuses.
func (f *fakeAPI) failNext(method string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], statuses...)
}

func (f *fakeAPI) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) put(recordType, id string, attrs reconcile.Attributes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(recordType, id, attrs)
}

func (f *fakeAPI) store(recordType, id string, attrs reconcile.Attributes) {
	if f.records[recordType] == nil {
		f.records[recordType] = make(map[string]reconcile.Attributes)
	}
	rec := attrs.Clone()
	rec["Id"] = id
	rec["SystemModstamp"] = f.now.Format("2006-01-02T15:04:05.000+0000")
	f.records[recordType][id] = rec
}

func (f *fakeAPI) sorted(recordType string) []reconcile.Attributes {
	ids := make([]string, 0, len(f.records[recordType]))
	for id := range f.records[recordType] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]reconcile.Attributes, 0, len(ids))
	for _, id := range ids {
		rec := f.records[recordType][id].Clone()
		rec["attributes"] = map[string]string{"type": recordType}
		out = append(out, rec)
	}
	return out
}

func (f *fakeAPI) page(w http.ResponseWriter, recordType string, offset int) {
	all := f.sorted(recordType)
	end := offset + 2
	if end > len(all) {
		end = len(all)
	}
	body := map[string]any{"totalSize": len(all), "done": end == len(all), "records": all[offset:end]}
	if end < len(all) {
		body["nextRecordsUrl"] = fmt.Sprintf("%s/query/%s-%d", apiPath, recordType, end)
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *fakeAPI) query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	m := fromClause.FindStringSubmatch(q)
	if m == nil {
		writeJSON(w, http.StatusBadRequest, []map[string]string{{"errorCode": "MALFORMED_QUERY", "message": q}})
		return
	}
	f.page(w, m[1], 0)
}

func (f *fakeAPI) nextPage(w http.ResponseWriter, r *http.Request) {
	recordType, offset, _ := strings.Cut(r.PathValue("cursor"), "-")
	n, _ := strconv.Atoi(offset)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.page(w, recordType, n)
}

func (f *fakeAPI) describe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describes++
	var fields []map[string]string
	for _, name := range f.fields[r.PathValue("type")] {
		fields = append(fields, map[string]string{"name": name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": r.PathValue("type"), "fields": fields})
}

func (f *fakeAPI) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[r.PathValue("type")][r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, []map[string]string{{"errorCode": "NOT_FOUND", "message": "The requested resource does not exist"}})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	var attrs reconcile.Attributes
	_ = json.NewDecoder(r.Body).Decode(&attrs)
	f.mu.Lock()
	defer f.mu.Unlock()
	recordType := r.PathValue("type")
	for _, rec := range f.records[recordType] {
		if email, ok := attrs["Email"]; ok && rec["Email"] == email {
			writeJSON(w, http.StatusBadRequest, []map[string]string{{"errorCode": "DUPLICATE_VALUE", "message": "duplicate value found: Email"}})
			return
		}
	}
	f.seq++
	id := fmt.Sprintf("%s%03d", recordType[:3], f.seq)
	f.store(recordType, id, attrs)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "success": true, "errors": []any{}})
}

func (f *fakeAPI) update(w http.ResponseWriter, r *http.Request) {
	var attrs reconcile.Attributes
	_ = json.NewDecoder(r.Body).Decode(&attrs)
	f.mu.Lock()
	defer f.mu.Unlock()
	recordType, id := r.PathValue("type"), r.PathValue("id")
	rec, ok := f.records[recordType][id]
	if !ok {
		writeJSON(w, http.StatusNotFound, []map[string]string{{"errorCode": "NOT_FOUND", "message": "The requested resource does not exist"}})
		return
	}
	f.now = f.now.Add(time.Second)
	merged := rec.Clone()
	for k, v := range attrs {
		merged[k] = v
	}
	f.store(recordType, id, merged)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recordType, id := r.PathValue("type"), r.PathValue("id")
	if _, ok := f.records[recordType][id]; !ok {
		writeJSON(w, http.StatusNotFound, []map[string]string{{"errorCode": "ENTITY_IS_DELETED", "message": "entity is deleted"}})
		return
	}
	delete(f.records[recordType], id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
