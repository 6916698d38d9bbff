package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationFor(t *testing.T, target string) Pagination {
	t.Helper()
	app := fiber.New()

	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestParsePaginationDefaults(t *testing.T) {
	p := paginationFor(t, "/")
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, p)
}

func TestParsePagination(t *testing.T) {
	p := paginationFor(t, "/?page=3&limit=10")
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Offset: 20}, p)
}

func TestParsePaginationRejectsGarbage(t *testing.T) {
	p := paginationFor(t, "/?page=-2&limit=zero")
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, p)
}

func TestPaginationMeta(t *testing.T) {
	meta := Pagination{Page: 2, Limit: 10, Offset: 10}.Meta(35)
	assert.Equal(t, fiber.Map{
		"current_page":   2,
		"items_per_page": 10,
		"total_items":    int64(35),
	}, meta)
}
