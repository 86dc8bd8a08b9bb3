package memstore

import "fmt"

// Constraint violations the Postgres schema would raise.

func errForeignKey(column string) error {
	return fmt.Errorf("memstore: foreign key violation on %s", column)
}

func errCheck(column string) error {
	return fmt.Errorf("memstore: check constraint violation on %s", column)
}
