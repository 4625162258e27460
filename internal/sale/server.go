package sale

import (
	"crypto/subtle"
	"net/http"
)

// Server handles HTTP requests for the till
type Server struct {
	service   *Service
	hub       http.Handler
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// NewServer creates a new Server with default mux. hub may be nil to disable live updates.
func NewServer(service *Service, hub http.Handler, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, hub, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, hub http.Handler, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		hub:       hub,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Cashier"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /static/app.js", s.requireAuth(s.handleStaticJS))

	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items/reset", s.requireAuth(s.handleResetItems))
	s.mux.HandleFunc("PUT /api/items/{index}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("POST /api/items/{index}/image", s.requireAuth(s.handleUploadImage))
	s.mux.HandleFunc("GET /api/images/{name}", s.requireAuth(s.handleGetImage))

	s.mux.HandleFunc("GET /api/sales", s.requireAuth(s.handleListSales))
	s.mux.HandleFunc("POST /api/sales", s.requireAuth(s.handleSubmitSale))
	s.mux.HandleFunc("GET /api/revenue", s.requireAuth(s.handleRevenue))
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.handleScanTicket))

	if s.hub != nil {
		s.mux.HandleFunc("GET /ws", s.requireAuth(s.hub.ServeHTTP))
	}

	// Catch-all last
	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
}

// ServeHTTP adds CORS headers, answers preflight requests, and dispatches to the mux
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}
