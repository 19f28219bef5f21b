package database

import "fmt"

// DataRetrievalError wraps any failure talking to the transactions store.
type DataRetrievalError struct {
	Op  string
	Err error
}

func (e *DataRetrievalError) Error() string {
	return fmt.Sprintf("data retrieval failed during %s: %v", e.Op, e.Err)
}

func (e *DataRetrievalError) Unwrap() error {
	return e.Err
}

func retrievalError(op string, err error) error {
	return &DataRetrievalError{Op: op, Err: err}
}
