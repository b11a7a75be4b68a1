package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// recordHandlers builds the repository wiring for a record keyed by a string
// uuid column named id.
func recordHandlers[T any](newRecord func() T, id func(T) *string) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			field := id(record)
			if field == nil {
				return uuid.Nil
			}
			return parseUUID(*field)
		},
		SetID: func(record T, value uuid.UUID) {
			if field := id(record); field != nil {
				*field = value.String()
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record T) string {
			field := id(record)
			if field == nil {
				return ""
			}
			return strings.TrimSpace(*field)
		},
	}
}

func customerHandlers() repository.ModelHandlers[*customerRecord] {
	return recordHandlers(
		func() *customerRecord { return &customerRecord{} },
		func(record *customerRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func profileAttributeHandlers() repository.ModelHandlers[*profileAttributeRecord] {
	return recordHandlers(
		func() *profileAttributeRecord { return &profileAttributeRecord{} },
		func(record *profileAttributeRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func resolutionHandlers() repository.ModelHandlers[*resolutionRecord] {
	return recordHandlers(
		func() *resolutionRecord { return &resolutionRecord{} },
		func(record *resolutionRecord) *string {
			if record == nil {
				return nil
			}
			return &record.ID
		},
	)
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
