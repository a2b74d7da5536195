package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Tomlord1122/todo-list/internal/domain"
	"github.com/Tomlord1122/todo-list/internal/service"
)

//go:embed web
var webFS embed.FS

// maxBodyBytes caps how much of a request body is read before parsing.
const maxBodyBytes = 1 << 20

const (
	msgTodoNotFound = "Todo not found"
	msgInternal     = "Internal server error"
	msgBodyTooLarge = "Request body too large"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.indexHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(filesOnlyFS{staticFS()}))))

	r.Get("/health", s.healthHandler)

	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", s.listTodosHandler)
		r.Post("/", s.createTodoHandler)
		r.Get("/{id:[0-9]+}", s.getTodoHandler)
		r.Put("/{id:[0-9]+}", s.updateTodoHandler)
		r.Delete("/{id:[0-9]+}", s.deleteTodoHandler)
	})

	return r
}

func staticFS() fs.FS {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return sub
}

// filesOnlyFS hides directories so the file server never renders a listing.
type filesOnlyFS struct {
	fs.FS
}

func (f filesOnlyFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, nil); err != nil {
		s.logger.ErrorContext(r.Context(), "render index", slog.Any("error", err))
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health(r.Context())
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todoService.ListTodos(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, "list todos", err)
		return
	}
	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.decodeFields(w, r)
	if !ok {
		return
	}

	var req service.CreateTodoRequest
	if title := stringField(fields, "title"); title != nil {
		req.Title = *title
	}

	todo, err := s.todoService.CreateTodo(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, "create todo", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	todo, found, err := s.todoService.GetTodo(r.Context(), id)
	if err != nil {
		s.respondWithServiceError(w, r, "get todo", err)
		return
	}
	if !found {
		respondWithError(w, http.StatusNotFound, msgTodoNotFound)
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	fields, ok := s.decodeFields(w, r)
	if !ok {
		return
	}
	req := service.UpdateTodoRequest{
		Title:     stringField(fields, "title"),
		Completed: boolField(fields, "completed"),
	}

	todo, err := s.todoService.UpdateTodo(r.Context(), id, req)
	if err != nil {
		s.respondWithServiceError(w, r, "update todo", err)
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

type deleteResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	if err := s.todoService.DeleteTodo(r.Context(), id); err != nil {
		s.respondWithServiceError(w, r, "delete todo", err)
		return
	}
	respondWithJSON(w, http.StatusOK, deleteResponse{Status: "deleted", ID: id})
}

// todoID parses the {id} segment. The route pattern only admits digits, so a
// failure here means the value overflows int64; that is answered like any
// other unmatched route.
func todoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// decodeFields reads the body as a JSON object. An absent, malformed or
// non-object body yields no fields, which the service then treats as
// missing input. A body over maxBodyBytes is answered with 413 and ok=false;
// the caller must stop there.
func (s *Server) decodeFields(w http.ResponseWriter, r *http.Request) (fields map[string]json.RawMessage, ok bool) {
	if r.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return nil, false
		}
		s.logger.DebugContext(r.Context(), "read request body", slog.Any("error", err))
		return nil, true
	}
	if len(body) == 0 {
		return nil, true
	}

	if err := json.Unmarshal(body, &fields); err != nil {
		s.logger.DebugContext(r.Context(), "ignoring malformed request body", slog.Any("error", err))
		return nil, true
	}
	return fields, true
}

// stringField returns nil when key is absent, null, or not a string.
func stringField(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// boolField returns nil when key is absent, null, or not a boolean.
func boolField(fields map[string]json.RawMessage, key string) *bool {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v *bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// respondWithServiceError maps domain errors to their fixed client messages.
// Anything else is logged and reported as a bare 500.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, msgTodoNotFound)
	default:
		s.logger.ErrorContext(r.Context(), op+" failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, msgInternal)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal JSON response", slog.Any("error", err))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
