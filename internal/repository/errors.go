package repository

import "errors"

// 見つからない（または所有者が違う）を統一
var ErrNotFound = errors.New("not found")
