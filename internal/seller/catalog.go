package seller

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/punchamoorthee/sellerdash/internal/domain"
)

const defaultOrdersPerPage = 20

// envelope is the {success, data} wrapper of the multi-provider
// endpoints. An unsuccessful envelope carries no usable data.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var resp envelope[[]domain.Category]
	err := c.do(ctx, call{
		op: "catalog_categories", method: http.MethodGet, path: "/seller/multi-provider/categories",
		fallback: "failed to load categories",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return []domain.Category{}, nil
	}
	return resp.Data, nil
}

func (c *Client) Products(ctx context.Context, categoryID domain.ID) ([]domain.CatalogProduct, error) {
	if categoryID == "" {
		return []domain.CatalogProduct{}, nil
	}
	var resp envelope[[]domain.CatalogProduct]
	err := c.do(ctx, call{
		op: "catalog_products", method: http.MethodGet, path: "/seller/multi-provider/products",
		query:    url.Values{"category_id": {categoryID.String()}},
		fallback: "failed to load products",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return []domain.CatalogProduct{}, nil
	}
	return resp.Data, nil
}

func (c *Client) Variants(ctx context.Context, productID domain.ID) ([]domain.Variant, error) {
	if productID == "" {
		return []domain.Variant{}, nil
	}
	var resp envelope[[]domain.Variant]
	err := c.do(ctx, call{
		op: "catalog_variants", method: http.MethodGet, path: "/seller/multi-provider/variants",
		query:    url.Values{"product_id": {productID.String()}},
		fallback: "failed to load product variants",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return []domain.Variant{}, nil
	}
	return resp.Data, nil
}

// Orders lists multi-provider orders, newest first as the backend sends
// them.
func (c *Client) Orders(ctx context.Context, f domain.OrderFilter) (*domain.OrderPage, error) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = defaultOrdersPerPage
	}
	q := url.Values{
		"page":     {strconv.Itoa(pageOrFirst(f.Page))},
		"per_page": {strconv.Itoa(perPage)},
	}
	setIf(q, "status", f.Status)
	setIf(q, "from_date", f.FromDate)
	setIf(q, "to_date", f.ToDate)

	var resp envelope[paginated[domain.Order]]
	err := c.do(ctx, call{
		op: "orders", method: http.MethodGet, path: "/seller/multi-provider/orders",
		query: q, fallback: "failed to load the order history",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &domain.OrderPage{
			Orders:     []domain.Order{},
			Pagination: domain.Pagination{CurrentPage: 1, LastPage: 1, PerPage: perPage},
		}, nil
	}
	p := resp.Data.pagination()
	if p.CurrentPage == 0 {
		p.CurrentPage = 1
	}
	if p.LastPage == 0 {
		p.LastPage = 1
	}
	if p.PerPage == 0 {
		p.PerPage = perPage
	}
	orders := resp.Data.Data
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.OrderPage{Orders: orders, Pagination: p}, nil
}

// Order loads one order with its status log. A missing order is an
// APIError with status 404.
func (c *Client) Order(ctx context.Context, id domain.ID) (*domain.Order, error) {
	var resp envelope[*domain.Order]
	err := c.do(ctx, call{
		op: "order_details", method: http.MethodGet, path: "/seller/multi-provider/orders/" + url.PathEscape(id.String()),
		fallback: "failed to load the order",
	}, &resp)
	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		return nil, &APIError{Status: http.StatusNotFound, Message: "order not found"}
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "order not found"}
	}
	return resp.Data, nil
}

// CreateOrder places a multi-provider order. Numeric variant ids are sent
// as numbers.
func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Receipt, error) {
	wire := struct {
		ProductVariantID any               `json:"product_variant_id"`
		Quantity         int64             `json:"quantity"`
		DeliveryData     map[string]string `json:"delivery_data"`
	}{req.ProductVariantID.String(), req.Quantity, req.DeliveryData}
	if n, err := strconv.ParseInt(req.ProductVariantID.String(), 10, 64); err == nil {
		wire.ProductVariantID = n
	}
	if wire.DeliveryData == nil {
		wire.DeliveryData = map[string]string{}
	}

	var receipt domain.Receipt
	err := c.do(ctx, call{
		op: "create_order", method: http.MethodPost, path: "/seller/multi-provider/orders",
		body: wire, fallback: "failed to create the order",
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
