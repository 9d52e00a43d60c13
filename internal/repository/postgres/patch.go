package postgres

import (
	"fmt"
	"strings"

	"pkm/internal/domain/models"
)

// setList builds the SET clause of an UPDATE from explicitly present fields.
type setList struct {
	cols []string
	args []interface{}
}

func (b *setList) add(col string, v interface{}) {
	b.args = append(b.args, v)
	b.cols = append(b.cols, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

// addOptional adds col when the patch field was present; a null value clears it.
func (b *setList) addOptional(col string, o models.OptionalString) {
	if o.Present {
		b.add(col, o.Value)
	}
}

// next returns the placeholder for the next argument appended by the caller.
func (b *setList) next() string { return fmt.Sprintf("$%d", len(b.args)+1) }

func (b *setList) String() string { return strings.Join(b.cols, ", ") }
