package store

import (
	"fmt"

	"uk.co.dudmesh.authgate/internal/model"
)

func errNotFound(err error) error {
	return fmt.Errorf("%w: %v", model.ErrorNotFound, err)
}

func errDuplicate(err error) error {
	return fmt.Errorf("%w: %v", model.ErrorDuplicate, err)
}
