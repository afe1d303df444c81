package domain

import (
	"errors"
	"fmt"
)

var errPlain = errors.New("boom")

func fmtWrap(err error) error {
	return fmt.Errorf("join meeting: %w", err)
}
