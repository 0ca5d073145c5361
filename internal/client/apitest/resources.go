package apitest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Restaurant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Cuisine string `json:"cuisine"`
}

type OrderItem struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type Order struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurantId"`
	Items        []OrderItem `json:"items"`
	Status       string      `json:"status"`
	Customer     string      `json:"customer"`
}

func seedRestaurants() []Restaurant {
	return []Restaurant{
		{ID: "r1", Name: "Pasta Nostra", Cuisine: "italian"},
		{ID: "r2", Name: "Sushi Go", Cuisine: "japanese"},
		{ID: "r3", Name: "Trattoria Uno", Cuisine: "italian"},
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"email": emailFromContext(r.Context())})
}

func (s *Server) listRestaurants(w http.ResponseWriter, r *http.Request) {
	cuisine := r.URL.Query().Get("cuisine")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Restaurant, 0, len(s.restaurants))
	for _, rest := range s.restaurants {
		if cuisine == "" || strings.EqualFold(rest.Cuisine, cuisine) {
			out = append(out, rest)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRestaurant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rest := range s.restaurants {
		if rest.ID == id {
			writeJSON(w, http.StatusOK, rest)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]string{"code": "RESTAURANT_NOT_FOUND", "message": "Restaurant not found"},
	})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in Order
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Malformed request body")
		return
	}
	if len(in.Items) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": []string{"items must not be empty"},
		})
		return
	}

	in.ID = uuid.NewString()
	in.Status = "pending"
	in.Customer = emailFromContext(r.Context())

	s.mu.Lock()
	s.orders = append(s.orders, in)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			if patch.Status != "" {
				s.orders[i].Status = patch.Status
			}
			writeJSON(w, http.StatusOK, s.orders[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
}
