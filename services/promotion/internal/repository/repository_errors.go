package repository

import (
	"fmt"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

var (
	ErrPromotionNotFound = fmt.Errorf("promotion %w", generalDomain.ErrNotFound)
	ErrPlacementNotFound = fmt.Errorf("placement %w", generalDomain.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", generalDomain.ErrNotFound)
)
