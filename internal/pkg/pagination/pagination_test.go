package pagination

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"third page", 3, 10, 3, 10, 20},
		{"zero values", 0, 0, 1, DefaultLimit, 0},
		{"negative", -4, -1, 1, DefaultLimit, 0},
		{"limit capped", 1, 1000, 1, MaxLimit, 0},
		{"page capped", maxPage + 5, 10, maxPage, 10, (maxPage - 1) * 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestGetMeta(t *testing.T) {
	m := GetMeta(New(2, 10), 25)
	assert.EqualValues(t, 3, m.TotalPages)
	assert.True(t, m.HasNext)
	assert.True(t, m.HasPrev)

	m = GetMeta(New(3, 10), 30)
	assert.EqualValues(t, 3, m.TotalPages)
	assert.False(t, m.HasNext)

	m = GetMeta(New(1, 10), 0)
	assert.Zero(t, m.TotalPages)
	assert.False(t, m.HasNext)
	assert.False(t, m.HasPrev)
}

func TestGetParams(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		p := GetParams(c, 5)
		return c.JSON([]int{p.Page, p.Limit, p.Offset})
	})

	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{1, 5, 0}},
		{"?page=2&limit=7", []int{2, 7, 7}},
		{"?page=abc&limit=xyz", []int{1, 5, 0}},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil), -1)
		require.NoError(t, err)

		var got []int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()
		assert.Equal(t, tt.want, got, tt.query)
	}
}

func TestNewResponse_EmptyPage(t *testing.T) {
	raw, err := json.Marshal(NewResponse[string](nil, New(1, 10), 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"meta":{"page":1,"limit":10,"total":0,"total_pages":0,"has_next":false,"has_prev":false}}`, string(raw))
}
