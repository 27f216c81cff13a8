package conv

import (
	"fmt"
	"math"

	"github.com/hupe1980/yocto/internal/errs"
)

// MaxDocuments is the largest documents count a container can address;
// relations store document ids as int32.
const MaxDocuments = math.MaxInt32

// DocumentID checks that id fits the int32 id space of relations.
func DocumentID(id int) (int32, error) {
	if id < 0 || id > MaxDocuments-1 {
		return 0, fmt.Errorf("%w: document id %d outside [0, %d)", errs.ErrOutOfRange, id, MaxDocuments)
	}
	return int32(id), nil
}

// Int64ToInt converts a length read from or destined for a container to
// int, failing where int is narrower.
func Int64ToInt(v int64) (int, error) {
	if v < math.MinInt || v > math.MaxInt {
		return 0, fmt.Errorf("%w: %d does not fit int", errs.ErrOutOfRange, v)
	}
	return int(v), nil
}
