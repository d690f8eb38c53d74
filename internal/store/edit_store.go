package store

import (
	"context"
	"errors"

	"github.com/Rutik126/Image-Replace-with-Cloudinary/internal/domain"
)

var ErrEditNotFound = errors.New("edit not found")

type EditStore interface {
	Create(ctx context.Context, edit domain.Edit) error
	Get(ctx context.Context, id string) (domain.Edit, bool, error)
	Update(ctx context.Context, edit domain.Edit) error
	Delete(ctx context.Context, id string) error
}
