package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	pkgerrors "github.com/pkg/errors"
	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/images"
	"github.com/safar/vegbox/internal/models"
	"github.com/safar/vegbox/internal/session"
	"github.com/safar/vegbox/internal/shop"
	"github.com/safar/vegbox/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxUploadMemory = 32 << 20

const (
	msgNeedNameAndTitle = "Please add your name and a product title"
	msgBadPrice         = "Price must be a non-negative number"
	msgBadQuantity      = "Quantity must be a non-negative whole number"
	msgBadImage         = "Image must be a .png, .jpg or .jpeg file"
	msgSelectQuantity   = "Select quantity > 0"
	msgNotEnoughStock   = "Not enough stock"
	msgProductGone      = "That product is no longer listed"
	msgEnterName        = "Please enter your name"
	msgCartEmpty        = "Cart is empty"
	msgCartCleared      = "Cart cleared"
	msgTypeQuestion     = "Type a question first"
	msgFarmerOnly       = "Switch to the Farmer role to add products"
	msgShoppersOnly     = "Switch to Customer or Visitor to shop"
	msgUnknownRole      = "Unknown role"
)

type productView struct {
	models.Product
	ShowImage   bool
	Placeholder bool
}

type cartLineView struct {
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	ctx := r.Context()
	sess := currentSession(r)

	flashes := sess.PopFlashes()
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not save session"), http.StatusInternalServerError)
		return
	}

	payload := map[string]interface{}{
		"flashes": flashes,
	}

	if sess.Role.CanBuy() {
		products, err := store.ListProducts(ctx, s.db)
		if err != nil {
			s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not retrieve products"), http.StatusInternalServerError)
			return
		}
		payload["products"] = s.productViews(r, products)

		summary, err := shop.Summarize(ctx, s.db, sess.Cart)
		if err != nil {
			s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not summarize cart"), http.StatusInternalServerError)
			return
		}
		lines := make([]cartLineView, 0, len(summary.Lines))
		for _, line := range summary.Lines {
			lines = append(lines, cartLineView{
				Title:     line.Title,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal(),
			})
		}
		payload["cart_lines"] = lines
		payload["cart_total"] = summary.Total
	}

	orders, err := store.ListRecentOrders(ctx, s.db, recentOrdersLimit)
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not retrieve recent orders"), http.StatusInternalServerError)
		return
	}
	payload["orders"] = orders

	if err := s.templates.ExecuteTemplate(w, "home", s.injectCommonTemplateData(r, payload)); err != nil {
		log.Error(err)
	}
}

func (s *Server) productViews(r *http.Request, products []models.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		view := productView{Product: p}
		if p.HasImage() {
			res := images.Load(r.Context(), s.images, p.ImagePath)
			switch res.Status {
			case images.Present:
				view.ShowImage = true
			case images.Unreadable:
				view.Placeholder = true
				requestLogger(r).WithError(res.Err).WithField("product", p.ID).Warn("image not available")
			}
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) setRoleHandler(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	role, err := session.ParseRole(r.FormValue("role"))
	if err != nil {
		sess.AddFlash(session.FlashError, msgUnknownRole)
	} else {
		sess.Role = role
	}
	s.saveAndRedirect(w, r, sess)
}

func (s *Server) addProductHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	ctx := r.Context()
	sess := currentSession(r)

	if !sess.Role.CanSell() {
		sess.AddFlash(session.FlashError, msgFarmerOnly)
		s.saveAndRedirect(w, r, sess)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not parse product form"), http.StatusBadRequest)
		return
	}

	form, upload, problem, err := readProductForm(r)
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not read product image"), http.StatusBadRequest)
		return
	}
	if problem != "" {
		sess.AddFlash(session.FlashError, problem)
		s.saveAndRedirect(w, r, sess)
		return
	}

	imagePath, _, err := images.SaveUpload(ctx, s.images, upload)
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not store product image"), http.StatusInternalServerError)
		return
	}
	form.ImagePath = imagePath

	product, err := store.AddProduct(ctx, s.db, form)
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not add product"), http.StatusInternalServerError)
		return
	}

	s.metrics.productsAdded.Inc()
	log.WithFields(logrus.Fields{
		"product": product.ID,
		"farmer":  product.FarmerName,
		"image":   product.HasImage(),
	}).Info("product added")

	sess.AddFlash(session.FlashSuccess, fmt.Sprintf("Added %s — visible in marketplace!", product.Title))
	s.saveAndRedirect(w, r, sess)
}

// readProductForm validates the farmer form. A non-empty problem is the
// message to show the farmer; err is reserved for unreadable uploads.
func readProductForm(r *http.Request) (store.NewProduct, *images.Upload, string, error) {
	form := store.NewProduct{
		FarmerName:  strings.TrimSpace(r.FormValue("farmer_name")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
	}
	if form.FarmerName == "" || form.Title == "" {
		return form, nil, msgNeedNameAndTitle, nil
	}

	price := decimal.Zero
	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			return form, nil, msgBadPrice, nil
		}
		price = parsed
	}
	form.Price = price

	quantity := 0
	if raw := strings.TrimSpace(r.FormValue("quantity")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return form, nil, msgBadQuantity, nil
		}
		quantity = parsed
	}
	form.Quantity = quantity

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return form, nil, "", nil
	}
	if err != nil {
		return form, nil, "", err
	}
	defer file.Close()

	if header.Filename == "" {
		return form, nil, "", nil
	}
	if !images.AllowedExtension(header.Filename) {
		return form, nil, msgBadImage, nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return form, nil, "", err
	}

	return form, &images.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, "", nil
}

func (s *Server) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	sess := currentSession(r)

	if !sess.Role.CanBuy() {
		sess.AddFlash(session.FlashError, msgShoppersOnly)
		s.saveAndRedirect(w, r, sess)
		return
	}

	productID, err := strconv.ParseInt(r.FormValue("product_id"), 10, 64)
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.New("product id not specified"), http.StatusBadRequest)
		return
	}
	// An unparsable quantity is treated like an unselected one.
	quantity, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity")))

	product, err := store.GetProduct(r.Context(), s.db, productID)
	if errors.Is(err, database.ErrProductNotFound) {
		sess.AddFlash(session.FlashError, msgProductGone)
		s.saveAndRedirect(w, r, sess)
		return
	}
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not retrieve product"), http.StatusInternalServerError)
		return
	}

	switch err := sess.Cart.Add(*product, quantity); {
	case errors.Is(err, shop.ErrInvalidQuantity):
		sess.AddFlash(session.FlashWarning, msgSelectQuantity)
	case errors.Is(err, shop.ErrNotEnoughStock):
		sess.AddFlash(session.FlashError, msgNotEnoughStock)
	case err != nil:
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "failed to add to cart"), http.StatusInternalServerError)
		return
	default:
		log.WithField("product", product.ID).WithField("quantity", quantity).Debug("added to cart")
		sess.AddFlash(session.FlashSuccess, fmt.Sprintf("Added %d x %s to cart", quantity, product.Title))
	}
	s.saveAndRedirect(w, r, sess)
}

func (s *Server) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.Cart.Clear()
	sess.AddFlash(session.FlashSuccess, msgCartCleared)
	s.saveAndRedirect(w, r, sess)
}

func (s *Server) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	sess := currentSession(r)

	if !sess.Role.CanBuy() {
		sess.AddFlash(session.FlashError, msgShoppersOnly)
		s.saveAndRedirect(w, r, sess)
		return
	}

	order, err := s.checkout.Checkout(r.Context(), sess.Cart, r.FormValue("customer_name"))
	switch {
	case errors.Is(err, shop.ErrCustomerNameRequired):
		sess.AddFlash(session.FlashError, msgEnterName)
	case errors.Is(err, shop.ErrEmptyCart):
		sess.AddFlash(session.FlashInfo, msgCartEmpty)
	case errors.Is(err, database.ErrInsufficientStock):
		sess.AddFlash(session.FlashError, msgNotEnoughStock)
	case err != nil:
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "checkout failed"), http.StatusInternalServerError)
		return
	default:
		s.metrics.ordersPlaced.Inc()
		log.WithFields(logrus.Fields{
			"order": order.ID,
			"lines": len(order.Lines),
			"total": order.Total.StringFixed(2),
		}).Info("order placed")

		sess.Cart.Clear()
		sess.LastOrderID = order.ID
		sess.AddFlash(session.FlashSuccess, fmt.Sprintf("Order #%d placed — total ₹%s", order.ID, order.Total.StringFixed(2)))
	}
	s.saveAndRedirect(w, r, sess)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	sess := currentSession(r)

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		sess.AddFlash(session.FlashWarning, msgTypeQuestion)
		s.saveAndRedirect(w, r, sess)
		return
	}

	reply := s.chat.Ask(r.Context(), prompt)
	outcome := "ok"
	if strings.HasPrefix(reply, "[Error ") || strings.HasPrefix(reply, "[Exception]") {
		outcome = "error"
	}
	s.metrics.chatRequests.WithLabelValues(outcome).Inc()
	log.WithField("outcome", outcome).WithField("prompt_len", len(prompt)).Info("chat relay")

	sess.AddFlash(session.FlashChat, reply)
	s.saveAndRedirect(w, r, sess)
}

func (s *Server) productImageHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	product, err := store.GetProduct(r.Context(), s.db, id)
	if errors.Is(err, database.ErrProductNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.renderHTTPError(requestLogger(r), r, w, pkgerrors.Wrap(err, "could not retrieve product"), http.StatusInternalServerError)
		return
	}

	res := images.Load(r.Context(), s.images, product.ImagePath)
	if res.Status != images.Present {
		if res.Err != nil {
			requestLogger(r).WithError(res.Err).WithField("product", id).Warn("image not available")
		}
		http.Error(w, "[image not available]", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(res.Data)
}

func (s *Server) receiptHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	order, err := store.GetOrder(r.Context(), s.db, id)
	if errors.Is(err, database.ErrOrderNotFound) {
		s.renderHTTPError(log, r, w, pkgerrors.Errorf("order %d not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		s.renderHTTPError(log, r, w, pkgerrors.Wrap(err, "could not retrieve order"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", shop.ReceiptFilename(order.ID)))
	if err := shop.WriteReceipt(w, order); err != nil {
		log.WithError(err).Error("could not write receipt")
	}
}

func (s *Server) saveAndRedirect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.renderHTTPError(requestLogger(r), r, w, pkgerrors.Wrap(err, "could not save session"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusFound)
}

func (s *Server) renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	log.WithField("error", err).Error("request error")
	errMsg := fmt.Sprintf("%+v", err)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)

	if templateErr := s.templates.ExecuteTemplate(w, "error", s.injectCommonTemplateData(r, map[string]interface{}{
		"error":       errMsg,
		"status_code": code,
		"status":      http.StatusText(code),
	})); templateErr != nil {
		log.Println(templateErr)
	}
}

func (s *Server) injectCommonTemplateData(r *http.Request, payload map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"request_id": requestID(r),
		"roles":      session.Roles,
	}
	if sess := currentSession(r); sess != nil {
		data["session_id"] = sess.ID
		data["role"] = sess.Role
		data["can_sell"] = sess.Role.CanSell()
		data["can_buy"] = sess.Role.CanBuy()
		data["last_order_id"] = sess.LastOrderID
	}

	for k, v := range payload {
		data[k] = v
	}

	return data
}
