package cerr

import (
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// F is the set of fields carried by an error for logging
type F = map[string]any

type Context struct {
	fields  F
	wrapped error
}

type fieldError struct {
	cause  error
	fields F
}

func (f *fieldError) Error() string { return f.cause.Error() }
func (f *fieldError) Unwrap() error { return f.cause }

func Field(key string, value any) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(err error) Context {
	return Context{}.Wrap(err)
}

func Error(msg string) error {
	return Context{}.Error(msg)
}

func (c Context) Field(key string, value any) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := make(F, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return Context{
		fields:  merged,
		wrapped: c.wrapped,
	}
}

func (c Context) Wrap(err error) Context {
	return Context{
		fields:  c.fields,
		wrapped: err,
	}
}

func (c Context) Error(msg string) error {
	var err error
	if c.wrapped != nil {
		err = errors.WrapWithDepth(1, c.wrapped, msg)
	} else {
		err = errors.NewWithDepth(1, msg)
	}

	if len(c.fields) == 0 {
		return err
	}

	return &fieldError{
		cause:  err,
		fields: c.fields,
	}
}

// CollectFields gathers every field along the wrap chain, outermost wins
func CollectFields(err error) F {
	collected := F{}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		fieldErr, ok := e.(*fieldError)
		if !ok {
			continue
		}

		for k, v := range fieldErr.fields {
			if _, exists := collected[k]; !exists {
				collected[k] = v
			}
		}
	}

	return collected
}

func Log(err error) {
	if err == nil {
		return
	}

	log.WithFields(log.Fields(CollectFields(err))).
		WithError(err).
		Error(err.Error())
}
