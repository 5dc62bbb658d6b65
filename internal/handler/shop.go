package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/shop"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/websocket"
)

type ShopHandler struct {
	shopStore *store.ShopStore
	shop      *shop.Shop
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewShopHandler(ss *store.ShopStore, s *shop.Shop, hub *websocket.Hub, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shopStore: ss, shop: s, hub: hub, logger: logger}
}

func (h *ShopHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type storeItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	CreatedBy   string `json:"created_by"`
	IsAvailable *bool  `json:"is_available"`
	IsVisible   *bool  `json:"is_visible"`
}

func (h *ShopHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req storeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be positive"})
		return
	}

	item, err := h.shopStore.CreateItem(req.Title, req.Description, req.Price, req.Category, req.ImageURL, req.CreatedBy)
	if err != nil {
		h.logger.Error("failed to create store item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create store item"})
		return
	}

	h.broadcast(websocket.NewMessage("store_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []model.StoreItem
		err   error
	)
	if r.URL.Query().Get("visible") == "true" {
		items, err = h.shopStore.ListVisibleItems()
	} else {
		items, err = h.shopStore.ListItems()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list store items"})
		return
	}
	if items == nil {
		items = []model.StoreItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShopHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.shopStore.GetItemByID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get store item"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ShopHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.shopStore.GetItemByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get store item"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store item not found"})
		return
	}

	var req storeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be positive"})
		return
	}

	available := existing.IsAvailable
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	visible := existing.IsVisible
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}

	item, err := h.shopStore.UpdateItem(id, req.Title, req.Description, req.Price, req.Category, req.ImageURL, available, visible)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update store item"})
		return
	}

	h.broadcast(websocket.NewMessage("store_item", "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShopHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.shopStore.GetItemByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get store item"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store item not found"})
		return
	}

	if err := h.shopStore.DeleteItem(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete store item"})
		return
	}

	h.broadcast(websocket.NewMessage("store_item", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("id")

	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_id is required"})
		return
	}

	purchase, balance, err := h.shop.Purchase(childID, req.ItemID, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, shop.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "store item not found"})
		return
	case errors.Is(err, shop.ErrItemUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "store item unavailable"})
		return
	case errors.Is(err, ledger.ErrChildNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient balance"})
		return
	default:
		h.logger.Error("failed to record purchase", "child_id", childID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record purchase"})
		return
	}

	h.broadcast(websocket.NewMessage("purchase", "created", purchase.ID, map[string]any{
		"child_id":     childID,
		"coin_balance": balance,
	}))
	writeJSON(w, http.StatusCreated, map[string]any{
		"purchase":     purchase,
		"coin_balance": balance,
	})
}

func (h *ShopHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.shopStore.ListPurchasesByChild(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list purchases"})
		return
	}
	if purchases == nil {
		purchases = []model.Purchase{}
	}
	writeJSON(w, http.StatusOK, purchases)
}
