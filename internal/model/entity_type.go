package model

import (
	"errors"
	"fmt"
)

// EntityType is the closed set of catalog entity kinds.
type EntityType string

const (
	Author       EntityType = "author"
	Edition      EntityType = "edition"
	EditionGroup EntityType = "edition-group"
	Publisher    EntityType = "publisher"
	Series       EntityType = "series"
	Work         EntityType = "work"
)

// ErrUnknownEntityType is returned when a type tag is not one of the known kinds.
var ErrUnknownEntityType = errors.New("unrecognized entity type")

// AttrKind is the value kind an entity attribute accepts.
type AttrKind int

const (
	KindInt AttrKind = iota
	KindString
	KindBool
	// KindRef holds a bbid or, inside a submission, a temporary key.
	KindRef
)

func (k AttrKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindRef:
		return "ref"
	}
	return fmt.Sprintf("AttrKind(%d)", int(k))
}

// typeInfo is the static per-kind dispatch row.
type typeInfo struct {
	priority     int
	attributes   map[string]AttrKind
	languages    bool
	publishers   bool
	refAttribute map[string]EntityType
}

var typeTable = map[EntityType]typeInfo{
	Author: {
		attributes: map[string]AttrKind{
			"typeId":      KindInt,
			"genderId":    KindInt,
			"beginAreaId": KindInt,
			"endAreaId":   KindInt,
			"beginDate":   KindString,
			"endDate":     KindString,
			"ended":       KindBool,
		},
	},
	Work: {
		attributes: map[string]AttrKind{
			"typeId": KindInt,
		},
		languages: true,
	},
	Publisher: {
		attributes: map[string]AttrKind{
			"typeId":    KindInt,
			"areaId":    KindInt,
			"beginDate": KindString,
			"endDate":   KindString,
			"ended":     KindBool,
		},
	},
	Series: {
		attributes: map[string]AttrKind{
			"orderingTypeId": KindInt,
			"itemType":       KindString,
		},
	},
	EditionGroup: {
		priority: 1,
		attributes: map[string]AttrKind{
			"typeId": KindInt,
		},
	},
	Edition: {
		priority: 2,
		attributes: map[string]AttrKind{
			"editionGroupBbid": KindRef,
			"formatId":         KindInt,
			"statusId":         KindInt,
			"pages":            KindInt,
			"width":            KindInt,
			"height":           KindInt,
			"depth":            KindInt,
			"weight":           KindInt,
			"releaseDate":      KindString,
		},
		languages:    true,
		publishers:   true,
		refAttribute: map[string]EntityType{"editionGroupBbid": EditionGroup},
	},
}

// ParseEntityType validates a type tag.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if _, ok := typeTable[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
	}
	return t, nil
}

// Valid reports whether t is a known kind.
func (t EntityType) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// Priority orders kinds within a submission: kinds that other new entities
// may reference are processed before the kinds that reference them.
func (t EntityType) Priority() int {
	return typeTable[t].priority
}

// HasLanguages reports whether the kind carries a language set.
func (t EntityType) HasLanguages() bool {
	return typeTable[t].languages
}

// HasPublishers reports whether the kind carries a publisher set.
func (t EntityType) HasPublishers() bool {
	return typeTable[t].publishers
}

// Attribute returns the kind of the named attribute for t.
func (t EntityType) Attribute(name string) (AttrKind, bool) {
	k, ok := typeTable[t].attributes[name]
	return k, ok
}

// RefTarget returns the entity type a ref attribute must point at.
func (t EntityType) RefTarget(name string) (EntityType, bool) {
	target, ok := typeTable[t].refAttribute[name]
	return target, ok
}

// AllEntityTypes lists every kind in a stable order.
func AllEntityTypes() []EntityType {
	return []EntityType{Author, Edition, EditionGroup, Publisher, Series, Work}
}
