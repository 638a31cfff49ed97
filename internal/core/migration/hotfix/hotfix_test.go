package hotfix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const header = `from django.db import migrations, models


class Migration(migrations.Migration):

    dependencies = [
        ('_django_schema', '0001_initial'),
    ]

    operations = [`

func TestApply(t *testing.T) {
	src := header + `
        migrations.DeleteModel(
            name='a',
        ),
        migrations.RemoveField(
            model_name='b',
            name='f',
        ),
        migrations.AddField(
            model_name='c',
            name='g',
            field=models.TextField(null=True),
        ),
        migrations.RemoveField(
            model_name='c',
            name='h',
        ),
        migrations.DeleteModel(
            name='b',
        ),
    ]
`
	want := header + `
#        migrations.RemoveField(
#            model_name='b',
#            name='f',
#        ),
        migrations.AddField(
            model_name='c',
            name='g',
            field=models.TextField(null=True),
        ),
        migrations.RemoveField(
            model_name='c',
            name='h',
        ),
        migrations.DeleteModel(
            name='b',
        ),
        migrations.DeleteModel(
            name='a',
        ),
    ]
`
	assert.Equal(t, want, Apply(src))
}

func TestApplyKeepsLineCountOfRemovals(t *testing.T) {
	src := header + `
        migrations.RemoveField(
            model_name='m',
            name='f',
        ),
        migrations.DeleteModel(
            name='m',
        ),
    ]
`
	got := Apply(src)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"))
	assert.Contains(t, got, "#        migrations.RemoveField(")
}

func TestApplyWithoutDeletions(t *testing.T) {
	src := header + `
        migrations.RemoveField(
            model_name='m',
            name='f',
        ),
    ]
`
	assert.Equal(t, src, Apply(src))
}
