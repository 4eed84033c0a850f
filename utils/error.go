package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorAlreadyResolved is returned when a validation issue is resolved a
// second time. The first resolution's audit fields are kept untouched.
var ErrorAlreadyResolved = errors.New("validation already resolved")

// ErrorRowExtraction marks a row whose identity fields (CPF/matricula)
// are missing. Recovered per row, never fatal to a batch.
var ErrorRowExtraction = errors.New("row is missing cpf or matricula")

var ErrorDuplicateRecord = errors.New("duplicate record")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
