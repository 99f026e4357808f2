package importer

import (
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {}))
}

func TestGuessColumns(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		expected map[int]string
	}{
		{
			name:   "canonical names",
			header: []string{"first_name", "last_name", "email"},
			expected: map[int]string{
				0: "first_name",
				1: "last_name",
				2: "email",
			},
		},
		{
			name:   "scanner app spellings",
			header: []string{"Given Name", "Surname", "E-Mail", "Company Name", "LinkedIn"},
			expected: map[int]string{
				0: "first_name",
				1: "last_name",
				2: "email",
				3: "company",
				4: "profile_url",
			},
		},
		{
			name:   "unknown columns skipped",
			header: []string{"First Name", "Shoe Size", "Email"},
			expected: map[int]string{
				0: "first_name",
				2: "email",
			},
		},
		{
			name:     "nothing recognized",
			header:   []string{"a", "b", "c"},
			expected: map[int]string{},
		},
		{
			name:   "notes and comments map to note",
			header: []string{"Notes", "Comments"},
			expected: map[int]string{
				0: "note",
				1: "note",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GuessColumns(tt.header))
		})
	}
}

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"First Name,Last Name,E-Mail,Company,Status,Notes",
		"Jane,Doe,jane@example.com,Acme Inc.,Contacted,met at booth",
		"Bob,Smith,bob@example.com,Widget GmbH,,",
	}, "\n")

	rows, err := newTestParser().ParseCSV(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Equal(t, "Doe", rows[0].LastName)
	assert.Equal(t, "jane@example.com", rows[0].Email)
	assert.Equal(t, "Acme Inc.", rows[0].Company)
	assert.Equal(t, "Contacted", rows[0].Status)
	assert.Equal(t, "met at booth", rows[0].Note)

	assert.Equal(t, "Bob", rows[1].FirstName)
	assert.Empty(t, rows[1].Status)
	assert.Empty(t, rows[1].Note)
}

func TestParseCSVSkipsEmptyRows(t *testing.T) {
	input := strings.Join([]string{
		"First Name,Email",
		"Jane,jane@example.com",
		",",
		"  ,  ",
		"Bob,bob@example.com",
	}, "\n")

	rows, err := newTestParser().ParseCSV(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Equal(t, "Bob", rows[1].FirstName)
}

func TestParseCSVRaggedRows(t *testing.T) {
	// Scanner exports often truncate trailing empty cells
	input := strings.Join([]string{
		"First Name,Last Name,Email",
		"Jane",
		"Bob,Smith,bob@example.com,extra-cell",
	}, "\n")

	rows, err := newTestParser().ParseCSV(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Empty(t, rows[0].Email)
	assert.Equal(t, "bob@example.com", rows[1].Email)
}

func TestParseCSVErrors(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		_, err := newTestParser().ParseCSV(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("no recognizable columns", func(t *testing.T) {
		_, err := newTestParser().ParseCSV(strings.NewReader("a,b,c\n1,2,3"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no recognizable columns")
	})

	t.Run("header only yields no rows", func(t *testing.T) {
		rows, err := newTestParser().ParseCSV(strings.NewReader("First Name,Email"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestParseDispatch(t *testing.T) {
	parser := newTestParser()

	t.Run("csv extension", func(t *testing.T) {
		rows, err := parser.Parse("leads.CSV", strings.NewReader("Email\njane@example.com"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("txt extension", func(t *testing.T) {
		rows, err := parser.Parse("export.txt", strings.NewReader("Email\njane@example.com"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := parser.Parse("leads.pdf", strings.NewReader(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported file type")
	})
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "first name", normalizeHeader("  First_Name  "))
	assert.Equal(t, "e mail", normalizeHeader("E-Mail"))
	assert.Equal(t, "profile url", normalizeHeader("Profile   URL"))
}
