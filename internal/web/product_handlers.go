package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"revue/internal/catalog"
	"revue/internal/country"
	"revue/internal/eventlog"
	"revue/internal/review"
	"revue/internal/user"
)

// handleProducts serves the public catalog listing and accepts new product
// offers from logged-in users.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listProducts(w, r)
	case http.MethodPost:
		s.offerProduct(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := catalog.PageQuery{
		Search: r.URL.Query().Get("search"),
		Region: r.URL.Query().Get("region"),
		Status: string(catalog.StatusAccepted),
		Limit:  s.cfg.PageSize,
		Page:   1,
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	for _, raw := range r.URL.Query()["category"] {
		c := catalog.Category(strings.ToUpper(raw))
		if catalog.ValidCategory(c) {
			q.Categories = append(q.Categories, c)
		}
	}

	products, err := s.products.Page(r.Context(), q)
	if err != nil {
		s.log.Error("list products", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	total, err := s.products.Count(r.Context(), q)
	if err != nil {
		s.log.Error("count products", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
		"page":     q.Page,
	})
}

// offerProduct files a user-suggested product. It lands in the NEW state and
// waits for an admin decision.
func (s *Server) offerProduct(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	name := r.FormValue("name")
	category := catalog.Category(r.FormValue("category"))
	if name == "" || !catalog.ValidCategory(category) {
		s.writeError(w, http.StatusBadRequest, "Name and a valid category are required")
		return
	}
	countries := country.ParseList(r.FormValue("countries"))
	if len(countries) == 0 {
		s.writeError(w, http.StatusBadRequest, "At least one valid country is required")
		return
	}
	var features []string
	for _, f := range strings.Split(r.FormValue("features"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}

	p := catalog.Product{
		Name:     name,
		Category: category,
		Status:   catalog.StatusNew,
		Content: catalog.Content{
			Manufacturer: r.FormValue("manufacturer"),
			Media:        r.FormValue("media"),
			Description:  r.FormValue("description"),
			Countries:    countries,
			FeaturesList: features,
		},
	}
	id, err := s.products.Add(r.Context(), p)
	if err != nil {
		s.log.Error("offer product", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.logEvent(r, eventlog.CreateProduct, u.UserID,
		fmt.Sprintf("User %s created new product %s", actorTag(u), name))
	s.writeJSON(w, http.StatusCreated, map[string]int64{"productId": id})
}

// handleProductSubtree dispatches /products/{id} and /products/{id}/reviews.
func (s *Server) handleProductSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	if id, ok := pathID(r.URL.Path, "/products/"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.productDetail(w, r, id)
		return
	}
	if strings.HasSuffix(rest, "/reviews") {
		raw := strings.TrimSuffix(rest, "/reviews")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.addReview(w, r, id)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) productDetail(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := s.products.GetByID(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		s.log.Error("load product", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	reviews, err := s.reviews.AcceptedByProduct(r.Context(), id)
	if err != nil {
		s.log.Error("load product reviews", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"product": p,
		"reviews": reviews,
	})
}

// addReview files a user review of a product. Feature grades arrive as a
// comma-separated list matching the product's feature order.
func (s *Server) addReview(w http.ResponseWriter, r *http.Request, productID int64) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	p, err := s.products.GetByID(r.Context(), productID)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		s.log.Error("load product", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	grade, err := strconv.ParseFloat(r.FormValue("grade"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Grade must be a number")
		return
	}
	var featureGrades []float64
	if raw := r.FormValue("featureGrades"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			g, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "Feature grades must be numbers")
				return
			}
			featureGrades = append(featureGrades, g)
		}
		if len(featureGrades) != len(p.Content.FeaturesList) {
			s.writeError(w, http.StatusBadRequest, "One grade per product feature is required")
			return
		}
	}

	id, err := s.reviews.Add(r.Context(), review.AddParams{
		ProductID:     productID,
		UserID:        u.UserID,
		Grade:         grade,
		Language:      r.FormValue("language"),
		Description:   r.FormValue("description"),
		Advantages:    r.FormValue("advantages"),
		Disadvantages: r.FormValue("disadvantages"),
		DoubleQuality: r.FormValue("doubleQuality") == "true",
		FeatureGrades: featureGrades,
	})
	if err != nil {
		s.log.Error("add review", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.logEvent(r, eventlog.CreateReview, u.UserID,
		fmt.Sprintf("User %s created new review of product %s(%d)", actorTag(u), p.Name, p.ProductID))
	s.writeJSON(w, http.StatusCreated, map[string]int64{"reviewId": id})
}

// handleAdminProducts serves the linking screen listing. A checked query
// parameter narrows the list to products still linkable to that selection.
func (s *Server) handleAdminProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requireType(w, r, user.TypeAdmin, user.TypeModerator) == nil {
		return
	}
	products, err := s.products.All(r.Context())
	if err != nil {
		s.log.Error("list products", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	stripped := make([]catalog.Stripped, 0, len(products))
	for _, p := range products {
		stripped = append(stripped, catalog.Strip(p))
	}
	if raw := r.URL.Query().Get("checked"); raw != "" {
		var checked []int64
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				checked = append(checked, id)
			}
		}
		stripped = catalog.FilterLinkable(stripped, checked)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"products": stripped})
}

// handleAdminProductSubtree dispatches /admin/products/links and the
// per-product moderation path /admin/products/{id}.
func (s *Server) handleAdminProductSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u := s.requireType(w, r, user.TypeAdmin, user.TypeModerator)
	if u == nil {
		return
	}
	if r.URL.Path == "/admin/products/links" {
		s.updateProductLinks(w, r, u)
		return
	}
	productID, ok := pathID(r.URL.Path, "/admin/products/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.moderateProduct(w, r, u, productID)
}

// updateProductLinks links or unlinks the posted set of products pairwise.
func (s *Server) updateProductLinks(w http.ResponseWriter, r *http.Request, u *user.User) {
	intent := r.FormValue("intent")
	if intent != "link" && intent != "ulink" {
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
		return
	}
	var ids []int64
	if err := json.Unmarshal([]byte(r.FormValue("products")), &ids); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed products payload")
		return
	}
	if err := s.products.UpdateLinks(r.Context(), ids, intent == "ulink"); err != nil {
		s.log.Error("update product links", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	verb := "linked"
	if intent == "ulink" {
		verb = "unlinked"
	}
	idText := make([]string, len(ids))
	for i, id := range ids {
		idText[i] = strconv.FormatInt(id, 10)
	}
	s.logEvent(r, eventlog.UpdateProduct, u.UserID,
		fmt.Sprintf("User %s %s products: %s", actorTag(u), verb, strings.Join(idText, ", ")))
	s.writeJSON(w, http.StatusOK, map[string]string{"responseTo": intent})
}

// handleNewProducts lists the admin moderation queue of user-offered
// products awaiting a decision.
func (s *Server) handleNewProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requireType(w, r, user.TypeAdmin, user.TypeModerator) == nil {
		return
	}
	products, err := s.products.Page(r.Context(), catalog.PageQuery{
		Status: string(catalog.StatusNew),
		Limit:  s.cfg.PageSize,
		Page:   1,
	})
	if err != nil {
		s.log.Error("list new products", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// moderateProduct accepts, rejects or accepts-with-edit one offered product.
func (s *Server) moderateProduct(w http.ResponseWriter, r *http.Request, u *user.User, productID int64) {
	intent := r.FormValue("intent")

	var status catalog.Status
	var edit *catalog.Edit
	switch intent {
	case "accept":
		status = catalog.StatusAccepted
	case "reject":
		status = catalog.StatusRejected
	case "edit":
		status = catalog.StatusAccepted
		edit = &catalog.Edit{}
		var payload struct {
			Name     string           `json:"name"`
			Category catalog.Category `json:"category"`
			Content  catalog.Content  `json:"content"`
		}
		if err := json.Unmarshal([]byte(r.FormValue("product")), &payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "Malformed product payload")
			return
		}
		if payload.Name == "" || !catalog.ValidCategory(payload.Category) {
			s.writeError(w, http.StatusBadRequest, "Name and a valid category are required")
			return
		}
		edit.Name = payload.Name
		edit.Category = payload.Category
		edit.Content = payload.Content
	default:
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
		return
	}

	err := s.products.ChangeStatus(r.Context(), productID, status, edit)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		s.log.Error("moderate product", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.logEvent(r, eventlog.UpdateProduct, u.UserID,
		fmt.Sprintf("User %s set product %d to %s", actorTag(u), productID, status))
	s.writeJSON(w, http.StatusOK, map[string]string{"responseTo": intent})
}
