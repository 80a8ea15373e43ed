package middleware

import (
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
)

func TestContainer_GetAllAndClear(t *testing.T) {
	var order []string
	mw := func(name string) func(huma.Context, func(huma.Context)) {
		return func(ctx huma.Context, next func(huma.Context)) {
			order = append(order, name)
			next(ctx)
		}
	}

	c := NewContainer()
	c.Add(mw("logger"))
	c.Add(mw("reporter"))

	got := c.GetAllAndClear()
	assert.Len(t, got, 2)
	assert.Empty(t, c.GetAllAndClear())

	for _, m := range got {
		m(nil, func(huma.Context) {})
	}
	assert.Equal(t, []string{"logger", "reporter"}, order)
}
