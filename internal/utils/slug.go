package utils

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

// UniqueSlug turns name into a URL slug and appends -2, -3, ... until
// taken reports it free.
func UniqueSlug(ctx context.Context, name string, taken func(context.Context, string) (bool, error)) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", fmt.Errorf("cannot build a slug from %q", name)
	}
	candidate := base
	for i := 2; i <= 100; i++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", name)
}
