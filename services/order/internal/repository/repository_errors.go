package repository

import (
	"fmt"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", generalDomain.ErrNotFound)
	ErrCartNotFound  = fmt.Errorf("cart %w", generalDomain.ErrNotFound)
)
