package storage

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// ErrNotFound indicates the mutation target does not exist in the store.
var ErrNotFound = errors.New("not found")

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == 404
	}
	return false
}
