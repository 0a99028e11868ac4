package internal

import (
	"context"
	"embed"
	"encoding/json"
	"log"
	"net/http"

	"project-tracker-api/internal/config"
	"project-tracker-api/internal/handlers"
	"project-tracker-api/internal/storage"
	"project-tracker-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v3"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB       *storage.DB
	Router   *chi.Mux
	Projects *store.ProjectStore
	Tasks    *store.TaskStore
	Metrics  *Metrics
	cfg      *config.Config
}

// StoreOptions maps the touch and cascade settings onto store options.
func StoreOptions(cfg *config.Config) store.Options {
	return store.Options{
		TouchOnProjectUpdate: cfg.TouchOnProjectUpdate,
		TouchOnTaskDelete:    cfg.TouchOnTaskDelete,
		CascadeProjectDelete: cfg.CascadeProjectDelete,
	}
}

// NewServer wires the stores and routes around an already opened storage
// handle. The caller owns db and closes it through Server.Close.
func NewServer(db *storage.DB, cfg *config.Config) *Server {
	return newServer(db, cfg, StoreOptions(cfg))
}

func newServer(db *storage.DB, cfg *config.Config, opts store.Options) *Server {
	projects := store.NewProjectStore(db.SQL, opts)

	s := &Server{
		DB:       db,
		Router:   chi.NewRouter(),
		Projects: projects,
		Tasks:    store.NewTaskStore(db.SQL, projects),
		Metrics:  NewMetrics(),
		cfg:      cfg,
	}

	s.Router.Use(requestID)
	s.Router.Use(middleware.Logger)
	s.Router.Use(middleware.Recoverer)

	// Mount metrics if enabled
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.mountDocs(s.Router)

	s.Router.Route("/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Post("/", s.createProject)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getProject)
			r.Put("/", s.updateProject)
			r.Patch("/", s.updateProject)
			r.Delete("/", s.deleteProject)

			r.Get("/tasks", s.listTasks)
			r.Post("/tasks", s.createTask)
			r.Get("/tasks/{taskID}", s.getTask)
			r.Put("/tasks/{taskID}", s.updateTask)
			r.Patch("/tasks/{taskID}", s.updateTask)
			r.Delete("/tasks/{taskID}", s.deleteTask)
		})
	})

	imports := handlers.NewImportsHandler(db, opts)
	s.Router.Post("/imports/excel", imports.UploadExcel)

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	if err := s.DB.Ping(ctx); err != nil {
		log.Printf("dbping: %v", err)
		writeError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "db: unavailable")
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// mountDocs serves the OpenAPI document as YAML and JSON plus a Swagger UI page
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	mux.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI document", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := openAPIDocument()
		if err != nil {
			http.Error(w, "Failed to read OpenAPI document", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(swaggerPage))
	})
}

// openAPIDocument decodes the embedded YAML document into JSON-encodable values.
func openAPIDocument() (map[string]any, error) {
	data, err := openapiFS.ReadFile("openapi/openapi.yaml")
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	// Round-trip through encoding/json to fail early on values JSON cannot carry.
	if _, err := json.Marshal(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

const swaggerPage = `<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Project Tracker API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`
