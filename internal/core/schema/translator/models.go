package translator

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/satishbabariya/kmigrator/internal/core/schema/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

const modelsPreamble = `# -*- coding: utf-8 -*-

from django.db import models
from datetime import date, time, datetime, timedelta
from django.db.models import *
from django.db.models.indexes import *
from django.contrib.postgres.indexes import *
try:
    from django.db.models import JSONField
except ImportError:
    from django.contrib.postgres.fields import JSONField
`

// RenderModels renders the whole schema snapshot consumed by the oracle.
// Every failing column is reported, not just the first one.
func RenderModels(schema *domain.TableSchema, opts Options) (string, error) {
	var b strings.Builder
	var errs *multierror.Error

	b.WriteString(modelsPreamble)
	for _, table := range schema.Tables {
		b.WriteString("\n\nclass ")
		b.WriteString(ClassName(table.Name, opts.SourceSchema))
		b.WriteString("(models.Model):\n")
		for _, col := range table.Fields() {
			directive, err := TranslateField(col.Descriptor, col.Name, opts)
			if err != nil {
				errs = multierror.Append(errs, locateError(err, table.Name, col.Name))
				continue
			}
			b.WriteString("    ")
			b.WriteString(FieldName(col.Name))
			b.WriteString(" = ")
			b.WriteString(directive)
			b.WriteString("\n")
		}

		meta, err := TranslateMeta(table.Meta())
		if err != nil {
			errs = multierror.Append(errs, locateError(err, table.Name, domain.MetaColumn))
		}
		b.WriteString("\n    class Meta:\n")
		b.WriteString("        db_table = '")
		b.WriteString(TableName(table.Name, opts.SourceSchema))
		b.WriteString("'\n")
		if meta != "" {
			b.WriteString(meta)
			b.WriteString("\n")
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func locateError(err error, table, column string) error {
	if te, ok := err.(*kerrors.TranslationError); ok {
		return te.WithLocation(table, column)
	}
	return err
}
