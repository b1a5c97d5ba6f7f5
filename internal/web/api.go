package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/store"
	"github.com/sirupsen/logrus"
)

func (s *Server) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := store.ListProducts(r.Context(), s.db)
	if err != nil {
		requestLogger(r).WithError(err).Error("list products")
		respondError(w, http.StatusInternalServerError, "could not list products")
		return
	}

	respondJSON(w, http.StatusOK, products)
}

func (s *Server) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if errors.Is(err, database.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		requestLogger(r).WithError(err).Error("get product")
		respondError(w, http.StatusInternalServerError, "could not get product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (s *Server) apiListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cursor := r.URL.Query().Get("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	page, err := store.ListOrdersCursor(r.Context(), s.db, cursor, limit)
	if err != nil {
		requestLogger(r).WithError(err).Error("list orders")
		respondError(w, http.StatusInternalServerError, "could not list orders")
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if errors.Is(err, database.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		requestLogger(r).WithError(err).Error("get order")
		respondError(w, http.StatusInternalServerError, "could not get order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("Error encoding JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
