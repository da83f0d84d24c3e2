//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "access_places/internal/adapters/http_server"
	"access_places/internal/adapters/moderation"
	"access_places/internal/app"
	mysqlrepo "access_places/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=access_places",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "access_places")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------

// Drives the real router, services, and MySQL repo end to end: two review
// submissions (the first creating the place) followed by discovery reads.
func TestHTTP_EndToEnd_SubmitAndDiscover(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)

	q := app.NewQueryService(repo, nil, 0)
	rsvc := app.NewReviewService(repo, nil, moderation.AllowAll{}, nil)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, R: rsvc})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	post := func(body string) *http.Response {
		t.Helper()
		res, err := http.Post(ts.URL+"/v1/reviews", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		return res
	}

	// First review creates the place together with its metadata.
	res := post(`{
		"placeId": "ChIJ-e2e-1",
		"rating": 4.5,
		"comment": "Step-free entrance",
		"author": "Ana",
		"accessibilityFeatures": {"wheelchairAccess": true},
		"place": {"name": "Mint Cafe", "primaryType": "cafe", "address": "12 Harbor Road"}
	}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first submit status %d", res.StatusCode)
	}
	res.Body.Close()

	// Second review appends and recomputes: normalize((4.5+3)/2) = 4.0.
	res = post(`{
		"placeId": "ChIJ-e2e-1",
		"rating": 3,
		"accessibilityFeatures": {"audioSystems": true}
	}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("second submit status %d", res.StatusCode)
	}
	res.Body.Close()

	// Discovery list reflects both reviews.
	res, err := http.Get(ts.URL + "/v1/places?category=wheelchairAccess&q=harbor")
	if err != nil {
		t.Fatalf("GET places: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	var places []struct {
		ID            string  `json:"id"`
		AverageRating float64 `json:"averageRating"`
		ReviewCount   int     `json:"reviewCount"`
		Features      struct {
			WheelchairAccess bool `json:"wheelchairAccess"`
			AudioSystems     bool `json:"audioSystems"`
		} `json:"accessibilityFeatures"`
	}
	if err := json.NewDecoder(res.Body).Decode(&places); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(places) != 1 || places[0].ID != "ChIJ-e2e-1" {
		t.Fatalf("unexpected list: %+v", places)
	}
	if places[0].AverageRating != 4.0 || places[0].ReviewCount != 2 {
		t.Fatalf("aggregate wrong: %+v", places[0])
	}
	if !places[0].Features.WheelchairAccess || !places[0].Features.AudioSystems {
		t.Fatalf("features not unioned: %+v", places[0].Features)
	}

	// Detail view serves the reviews newest first with the anonymous default.
	res2, err := http.Get(ts.URL + "/v1/places/ChIJ-e2e-1")
	if err != nil {
		t.Fatalf("GET place: %v", err)
	}
	defer res2.Body.Close()
	var detail struct {
		Reviews []struct {
			Rating float64 `json:"rating"`
			Author string  `json:"author"`
		} `json:"reviews"`
	}
	if err := json.NewDecoder(res2.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(detail.Reviews))
	}
	if detail.Reviews[0].Rating != 3.0 || detail.Reviews[0].Author != "Anonymous" {
		t.Fatalf("newest review wrong: %+v", detail.Reviews[0])
	}
	if detail.Reviews[1].Author != "Ana" {
		t.Fatalf("oldest review wrong: %+v", detail.Reviews[1])
	}
}
