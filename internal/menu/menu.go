// Package menu reads the catalog the cart is filled from.
package menu

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
	"github.com/shopspring/decimal"
)

var (
	ErrMenuLoad         = errors.New("menu load failed")
	ErrCategoryNotFound = errors.New("category not found")
)

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Item struct {
	ID          int             `json:"id"`
	CategoryID  int             `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
}

type Remote interface {
	Get(ctx context.Context, path string, out any) error
}

type Client struct {
	api Remote
}

func New(api Remote) *Client { return &Client{api: api} }

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.api.Get(ctx, "/MenuCategories", &out); err != nil {
		return nil, errors.Join(ErrMenuLoad, err)
	}
	return out, nil
}

func (c *Client) Items(ctx context.Context) ([]Item, error) {
	var out []Item
	if err := c.api.Get(ctx, "/MenuItems", &out); err != nil {
		return nil, errors.Join(ErrMenuLoad, err)
	}
	return out, nil
}

// ItemsInCategory filters client-side; the backend has no category filter.
func (c *Client) ItemsInCategory(ctx context.Context, categoryID int) ([]Item, error) {
	all, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(all))
	for _, it := range all {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out, nil
}

// CategoryBySlug matches case-insensitively.
func (c *Client) CategoryBySlug(ctx context.Context, slug string) (Category, error) {
	cats, err := c.Categories(ctx)
	if err != nil {
		return Category{}, err
	}
	for _, cat := range cats {
		if strings.EqualFold(cat.Slug, slug) {
			return cat, nil
		}
	}
	return Category{}, ErrCategoryNotFound
}

// ImagePath is the API path of a menu item's picture.
func ImagePath(menuItemID int) string {
	return apiclient.Path(nil, "MenuItems", "image", menuItemID)
}
