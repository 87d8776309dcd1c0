package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"snackstand/pkg/inventory"
	"snackstand/pkg/order"
	"snackstand/pkg/shop"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Server wires HTTP endpoints to the shop service and keeps the thin web
// concerns (templates, sessions, routing) away from the core rules.
type Server struct {
	shop      *shop.Service
	sessions  *sessions.CookieStore
	adminPIN  string
	templates *template.Template
	logger    *zap.Logger
}

// New parses the templates once so each request only executes them.
func New(service *shop.Service, adminPIN, sessionSecret string, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		shop:      service,
		sessions:  newSessionStore(sessionSecret),
		adminPIN:  adminPIN,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Handler returns the router with customer, admin, and auth routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.indexPage).Methods(http.MethodGet)
	r.HandleFunc("/stock", s.stockEndpoint).Methods(http.MethodGet)
	r.HandleFunc("/order", s.placeOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders", s.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/complete/{id}", s.completeOrder).Methods(http.MethodPost)
	r.HandleFunc("/toggle_store", s.toggleStore).Methods(http.MethodPost)
	r.HandleFunc("/admin", s.adminPage).Methods(http.MethodGet)
	r.HandleFunc("/admin/stock", s.adminStockPage).Methods(http.MethodGet)
	r.HandleFunc("/admin/stock", s.adminStockUpdate).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodGet)
	return r
}

// indexPage renders the menu, or the closed notice while the stand is not
// taking orders.
func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	page := "index.gohtml"
	if !s.shop.Open() {
		page = "closed.gohtml"
	}
	if err := s.templates.ExecuteTemplate(w, page, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// stockEndpoint serves the public stock map so the menu can refresh itself.
func (s *Server) stockEndpoint(w http.ResponseWriter, r *http.Request) {
	items, err := s.shop.Stock(r.Context())
	if err != nil {
		s.logger.Error("stock listing failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = map[string]inventory.Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(items)
}

// orderPayload accepts both the single-item body and the cart body on /order.
// Cart values may arrive as JSON numbers or strings; both are carried as raw
// strings so the service can apply its best-effort parse.
type orderPayload struct {
	Name         string         `json:"name"`
	PickupMethod string         `json:"pickup_method"`
	Item         string         `json:"item"`
	Cart         map[string]any `json:"cart"`
}

// placeOrder decodes the checkout request and hands it to the shop service.
// The original stand posted url-encoded single-item forms, so those are still accepted.
func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var sub shop.Submission

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var payload orderPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.respond(w, http.StatusBadRequest, false, "invalid JSON")
			return
		}
		sub = shop.Submission{
			Name:         payload.Name,
			PickupMethod: payload.PickupMethod,
			Item:         payload.Item,
			Cart:         stringifyCart(payload.Cart),
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.respond(w, http.StatusBadRequest, false, "invalid form")
			return
		}
		sub = shop.Submission{
			Name:         r.PostFormValue("name"),
			PickupMethod: r.PostFormValue("pickup_method"),
			Item:         r.PostFormValue("item"),
		}
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.shop.PlaceOrder(ctx, sub); err != nil {
		switch {
		case errors.Is(err, shop.ErrStoreClosed):
			s.respond(w, http.StatusForbidden, false, "Store is closed.")
		case isRejection(err):
			s.logger.Info("order rejected", zap.Error(err))
			s.respond(w, http.StatusBadRequest, false, err.Error())
		default:
			s.logger.Error("order failed", zap.Error(err))
			s.respond(w, http.StatusInternalServerError, false, "internal error")
		}
		return
	}
	s.respond(w, http.StatusOK, true, "")
}

// listOrders exposes the ledger to the admin dashboard only.
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if !s.isAdmin(r) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("[]"))
		return
	}
	orders, err := s.shop.Orders(r.Context())
	if err != nil {
		s.logger.Error("order listing failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	json.NewEncoder(w).Encode(orders)
}

// completeOrder marks one order delivered, rejecting repeats.
func (s *Server) completeOrder(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		s.respond(w, http.StatusForbidden, false, "")
		return
	}
	id := mux.Vars(r)["id"]

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.shop.CompleteOrder(ctx, id); err != nil {
		switch {
		case errors.Is(err, order.ErrUnknownOrder):
			s.respond(w, http.StatusBadRequest, false, "unknown order")
		case errors.Is(err, order.ErrAlreadyDelivered):
			s.respond(w, http.StatusBadRequest, false, "Order already delivered")
		default:
			s.logger.Error("completion failed", zap.String("id", id), zap.Error(err))
			s.respond(w, http.StatusInternalServerError, false, "internal error")
		}
		return
	}
	s.respond(w, http.StatusOK, true, "")
}

// toggleStore flips the open flag and reports the new state.
func (s *Server) toggleStore(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		s.respond(w, http.StatusForbidden, false, "")
		return
	}
	open := s.shop.Toggle()
	s.logger.Info("store toggled", zap.Bool("open", open))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "store_open": open})
}

// adminPage renders the dashboard behind the session gate.
func (s *Server) adminPage(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	data := struct{ StoreOpen bool }{StoreOpen: s.shop.Open()}
	if err := s.templates.ExecuteTemplate(w, "admin.gohtml", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// adminStockPage shows the editable stock table.
func (s *Server) adminStockPage(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	items, err := s.shop.Stock(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := struct{ Stock map[string]inventory.Item }{Stock: items}
	if err := s.templates.ExecuteTemplate(w, "admin_stock.gohtml", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// adminStockUpdate applies the posted item -> count pairs and always redirects
// back, silently skipping unparsable entries.
func (s *Server) adminStockUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin/stock", http.StatusFound)
		return
	}
	counts := make(map[string]string, len(r.PostForm))
	for field := range r.PostForm {
		counts[field] = r.PostFormValue(field)
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.shop.AdjustStock(ctx, counts); err != nil {
		s.logger.Error("stock adjustment failed", zap.Error(err))
	}
	http.Redirect(w, r, "/admin/stock", http.StatusFound)
}

// loginPage renders the PIN form.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.ExecuteTemplate(w, "login.gohtml", struct{ Error string }{}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// login checks the shared PIN and grants the admin session.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("pin") != s.adminPIN {
		s.logger.Info("login rejected")
		w.WriteHeader(http.StatusUnauthorized)
		s.templates.ExecuteTemplate(w, "login.gohtml", struct{ Error string }{Error: "Incorrect PIN"})
		return
	}
	if err := s.setAdmin(w, r, true); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// logout clears the admin session.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.setAdmin(w, r, false); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// respond keeps the success/message JSON shape consistent across endpoints.
func (s *Server) respond(w http.ResponseWriter, status int, success bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": success}
	if message != "" {
		body["message"] = message
	}
	json.NewEncoder(w).Encode(body)
}

// isRejection distinguishes rule violations from infrastructure failures.
func isRejection(err error) bool {
	return errors.Is(err, shop.ErrInvalidName) ||
		errors.Is(err, shop.ErrEmptyCart) ||
		errors.Is(err, inventory.ErrItemNotFound) ||
		errors.Is(err, inventory.ErrInsufficientStock) ||
		errors.Is(err, inventory.ErrOutOfStock)
}

// stringifyCart flattens decoded JSON cart values into the raw strings the
// service parses best-effort.
func stringifyCart(cart map[string]any) map[string]string {
	if len(cart) == 0 {
		return nil
	}
	out := make(map[string]string, len(cart))
	for name, value := range cart {
		switch v := value.(type) {
		case string:
			out[name] = v
		case float64:
			if v == float64(int(v)) {
				out[name] = strconv.Itoa(int(v))
			} else {
				// A fractional quantity should fail the integer parse, not be truncated.
				out[name] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		default:
			out[name] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// contextWithTimeout bounds every mutating call the same way.
func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
