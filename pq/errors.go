// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pq

import "errors"

var (
	ErrNoItem = errors.New("pq: no item at requested key")
)
