package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/stock"
)

type repoMock struct {
	GetByUserFunc func(ctx context.Context, userID string) (*Cart, error)
	FindLineFunc  func(ctx context.Context, lineID string) (Line, string, error)
	SaveFunc      func(ctx context.Context, c *Cart) error

	saved *Cart
}

func (m *repoMock) GetByUser(ctx context.Context, userID string) (*Cart, error) {
	return m.GetByUserFunc(ctx, userID)
}

func (m *repoMock) FindLine(ctx context.Context, lineID string) (Line, string, error) {
	return m.FindLineFunc(ctx, lineID)
}

func (m *repoMock) Save(ctx context.Context, c *Cart) error {
	m.saved = c
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	return nil
}

type productsMock map[string]catalog.Product

func (m productsMock) Get(_ context.Context, productID string) (catalog.Product, error) {
	p, ok := m[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestServiceAddItem(t *testing.T) {
	ctx := context.Background()
	products := productsMock{
		"p1": {ID: "p1", Name: "Widget", Price: 10.0, StockQuantity: 5, Active: true},
		"p2": {ID: "p2", Name: "Retired", Price: 3.0, StockQuantity: 9, Active: false},
	}

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc := NewService(&repoMock{}, products, testLogger())
		_, err := svc.AddItem(ctx, "user-1", "p1", 0)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects inactive product", func(t *testing.T) {
		svc := NewService(&repoMock{}, products, testLogger())
		_, err := svc.AddItem(ctx, "user-1", "p2", 1)
		require.ErrorIs(t, err, ErrProductUnavailable)
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		svc := NewService(&repoMock{}, products, testLogger())
		_, err := svc.AddItem(ctx, "user-1", "missing", 1)
		require.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("creates cart lazily and saves", func(t *testing.T) {
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return nil, ErrCartNotFound
			},
		}
		svc := NewService(repo, products, testLogger())

		c, err := svc.AddItem(ctx, "user-1", "p1", 2)
		require.NoError(t, err)
		require.Equal(t, "user-1", c.UserID)
		require.Len(t, c.Lines, 1)
		require.Equal(t, 2, c.TotalItems)
		require.Equal(t, 20.0, c.TotalAmount)
		require.NotNil(t, repo.saved)
	})

	t.Run("merged quantity is checked against stock", func(t *testing.T) {
		existing := New("user-1")
		existing.AddLine("p1", 10.0, 4)
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return existing, nil
			},
		}
		svc := NewService(repo, products, testLogger())

		// 4 already in the cart + 2 more exceeds the 5 available.
		_, err := svc.AddItem(ctx, "user-1", "p1", 2)

		var insufficient *stock.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, 6, insufficient.Requested)
		require.Equal(t, 5, insufficient.Available)
	})
}

func TestServiceUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	products := productsMock{
		"p1": {ID: "p1", Name: "Widget", Price: 10.0, StockQuantity: 5, Active: true},
	}

	owned := New("user-1")
	line := owned.AddLine("p1", 10.0, 1)

	repo := &repoMock{
		GetByUserFunc: func(_ context.Context, userID string) (*Cart, error) {
			if userID == "user-1" {
				return owned, nil
			}
			return nil, ErrCartNotFound
		},
		FindLineFunc: func(_ context.Context, lineID string) (Line, string, error) {
			if lineID == line.ID {
				return *line, "user-1", nil
			}
			return Line{}, "", ErrItemNotFound
		},
	}
	svc := NewService(repo, products, testLogger())

	t.Run("updates and recomputes totals", func(t *testing.T) {
		c, err := svc.UpdateQuantity(ctx, "user-1", line.ID, 3)
		require.NoError(t, err)
		require.Equal(t, 3, c.TotalItems)
		require.Equal(t, 30.0, c.TotalAmount)
	})

	t.Run("foreign line is rejected as not owned", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, "intruder", line.ID, 2)
		require.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, "user-1", "nope", 2)
		require.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("stock shortfall", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, "user-1", line.ID, 6)
		var insufficient *stock.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := svc.UpdateQuantity(ctx, "user-1", line.ID, 0)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestServiceRemoveItem_NotOwner(t *testing.T) {
	ctx := context.Background()
	owned := New("user-1")
	line := owned.AddLine("p1", 10.0, 1)

	repo := &repoMock{
		FindLineFunc: func(context.Context, string) (Line, string, error) {
			return *line, "user-1", nil
		},
	}
	svc := NewService(repo, productsMock{}, testLogger())

	_, err := svc.RemoveItem(ctx, "intruder", line.ID)
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestServiceClear(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart is rejected", func(t *testing.T) {
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return New("user-1"), nil
			},
		}
		svc := NewService(repo, productsMock{}, testLogger())

		_, err := svc.Clear(ctx, "user-1")
		require.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("clears and persists", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p1", 10.0, 2)
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return c, nil
			},
		}
		svc := NewService(repo, productsMock{}, testLogger())

		got, err := svc.Clear(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, got.IsEmpty())
		require.Zero(t, got.TotalAmount)
		require.NotNil(t, repo.saved)
	})
}

func TestServiceItemCount(t *testing.T) {
	ctx := context.Background()

	t.Run("no cart means zero", func(t *testing.T) {
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return nil, ErrCartNotFound
			},
		}
		svc := NewService(repo, productsMock{}, testLogger())

		count, err := svc.ItemCount(ctx, "user-1")
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("counts units not lines", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p1", 10.0, 2)
		c.AddLine("p2", 5.0, 3)
		repo := &repoMock{
			GetByUserFunc: func(context.Context, string) (*Cart, error) {
				return c, nil
			},
		}
		svc := NewService(repo, productsMock{}, testLogger())

		count, err := svc.ItemCount(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, 5, count)
	})
}

func TestServiceValidateForCheckout(t *testing.T) {
	ctx := context.Background()
	products := productsMock{
		"p1": {ID: "p1", Name: "Widget", Price: 10.0, StockQuantity: 5, Active: true},
	}

	c := New("user-1")
	c.AddLine("p1", 10.0, 2)
	repo := &repoMock{
		GetByUserFunc: func(context.Context, string) (*Cart, error) {
			return c, nil
		},
	}
	svc := NewService(repo, products, testLogger())

	require.NoError(t, svc.ValidateForCheckout(ctx, "user-1"))

	c.Clear()
	require.ErrorIs(t, svc.ValidateForCheckout(ctx, "user-1"), ErrCartEmpty)
}

func TestValidateLines(t *testing.T) {
	ctx := context.Background()
	products := productsMock{
		"p1": {ID: "p1", Name: "Widget", SKU: "W-1", Price: 10.0, StockQuantity: 5, Active: true},
		"p2": {ID: "p2", Name: "Retired", SKU: "R-1", Price: 3.0, StockQuantity: 9, Active: false},
	}

	t.Run("empty cart", func(t *testing.T) {
		_, err := ValidateLines(ctx, products, New("user-1"))
		require.ErrorIs(t, err, ErrCartEmpty)
	})

	t.Run("inactive product", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p2", 3.0, 1)
		_, err := ValidateLines(ctx, products, c)
		require.ErrorIs(t, err, ErrProductUnavailable)
	})

	t.Run("stale price does not block validation", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p1", 9.0, 2) // cart captured an older price

		read, err := ValidateLines(ctx, products, c)
		require.NoError(t, err)
		require.Equal(t, 10.0, read["p1"].Price)
	})

	t.Run("shortfall carries diagnostics", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p1", 10.0, 8)

		_, err := ValidateLines(ctx, products, c)
		var insufficient *stock.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, 8, insufficient.Requested)
		require.Equal(t, 5, insufficient.Available)
	})

	t.Run("returns the products it read", func(t *testing.T) {
		c := New("user-1")
		c.AddLine("p1", 10.0, 2)

		read, err := ValidateLines(ctx, products, c)
		require.NoError(t, err)
		require.Len(t, read, 1)
		require.Equal(t, "W-1", read["p1"].SKU)
	})
}

func TestServiceGetOrCreate_PropagatesRepoError(t *testing.T) {
	repo := &repoMock{
		GetByUserFunc: func(context.Context, string) (*Cart, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(repo, productsMock{}, testLogger())

	_, err := svc.GetOrCreate(context.Background(), "user-1")
	require.Error(t, err)
}
