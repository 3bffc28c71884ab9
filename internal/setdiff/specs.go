package setdiff

import (
	"strconv"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/value"
)

// Aliases compares by name, sortName, languageId and primary.
var Aliases = Spec[model.Alias]{
	ID:      func(a model.Alias) string { return strconv.FormatInt(a.ID, 10) },
	Compare: func(a model.Alias) value.Object { return a.Compare() },
}

// Identifiers compares by typeId and value.
var Identifiers = Spec[model.Identifier]{
	ID:      func(i model.Identifier) string { return strconv.FormatInt(i.ID, 10) },
	Compare: func(i model.Identifier) value.Object { return i.Compare() },
}

// Relationships compares by typeId and both endpoints.
var Relationships = Spec[model.Relationship]{
	ID:      func(r model.Relationship) string { return strconv.FormatInt(r.ID, 10) },
	Compare: func(r model.Relationship) value.Object { return r.Compare() },
}

// Languages is membership-only.
var Languages = Spec[int64]{
	ID: func(id int64) string { return strconv.FormatInt(id, 10) },
}

// Publishers is membership-only over publisher bbids.
var Publishers = Spec[string]{
	ID: func(bbid string) string { return bbid },
}
