package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/tablecal/internal/httputil"
	"github.com/banshee-data/tablecal/internal/monitoring"
)

// AttachAdminRoutes mounts the journal's debug pages under /debug/: tailsql
// for ad-hoc queries, JSON session and fit lists and a gzipped backup
// download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://tablecal.db", db.DB, &tailsql.DBOptions{
		Label: "Machine journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("sessions", "Recent controller sessions (JSON)", http.HandlerFunc(db.handleSessions))
	debug.Handle("fits", "Stored plane and circle fits (JSON, ?kind=circle)", http.HandlerFunc(db.handleFits))
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := httputil.QueryLimit(r, 50)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", r.URL.Query().Get("limit")))
		return
	}

	sessions, err := db.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

func (db *DB) handleFits(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = FitKindPlane
	}
	if kind != FitKindPlane && kind != FitKindCircle {
		httputil.BadRequest(w, fmt.Sprintf("invalid kind %q", kind))
		return
	}
	limit, ok := httputil.QueryLimit(r, 20)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", r.URL.Query().Get("limit")))
		return
	}

	fits, err := db.Fits(kind, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list fits: %v", err))
		return
	}
	if fits == nil {
		fits = []FitRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, fits)
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "tablecal-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	name := fmt.Sprintf("backup-%d.db", db.clock.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
