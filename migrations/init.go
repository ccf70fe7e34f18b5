package migrations

import (
	"io/fs"

	moderation "github.com/goliatone/go-moderation"
)

func init() {
	queueFS, err := fs.Sub(moderation.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(queueFS)
}
