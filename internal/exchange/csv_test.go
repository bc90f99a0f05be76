package exchange_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/exchange"
	"github.com/tartampluch/birthday-manager/internal/store"
)

const sampleHeader = "Vorname;Nachname;Geburtstag;Gruppen;E-Mail;Telefon;Notizen\n"

func TestValidateCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		valid     bool
		errSub    string
		warnSub   string
		lineCount int
	}{
		{"Valid", sampleHeader + "Max;Muster;15.03.1985;Familie;;;\n", true, "", "", 1},
		{"Empty", "  \n\n", false, config.ErrCSVEmpty, "", 0},
		{"Header only", sampleHeader, true, "", config.ErrCSVHeaderOnly, 0},
		{"Comma delimited", "Vorname,Nachname,Geburtstag\nMax,Muster,15.03.1985\n", false, config.ErrCSVDelimiter, "", 0},
		{"No name columns", "Geburtstag;Gruppen\n01.01.2000;Familie\n", false, config.ErrCSVNameColumn, "", 0},
		{"Partial header", "Vorname;Geburtstag\nMax;01.01.2000\n", true, "", config.ErrCSVMissingCols, 1},
		{"BOM prefixed", config.CSVBOM + sampleHeader + "Max;;;;;;\n", true, "", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := exchange.ValidateCSV([]byte(tt.input))
			assert.Equal(t, tt.valid, rep.Valid)
			assert.Equal(t, tt.lineCount, rep.LineCount)
			if tt.errSub != "" {
				assert.Contains(t, strings.Join(rep.Errors, "|"), tt.errSub)
			}
			if tt.warnSub != "" {
				assert.Contains(t, strings.Join(rep.Warnings, "|"), tt.warnSub)
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	input := config.CSVBOM + sampleHeader +
		"Max;Mustermann;15.03.1985;Familie, Freunde;max@example.com;0171-2345678;\"Mag Bücher; und \"\"Kaffee\"\"\"\n" +
		";;01.01.2000;Arbeit;;;ohne Namen\n" +
		"Anna;;31.02.1999;;;;\n"

	people, err := exchange.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, people, 2, "rows without a name are skipped")

	assert.Equal(t, "Max", people[0].FirstName)
	assert.Equal(t, []string{"Familie", "Freunde"}, people[0].Groups)
	assert.Equal(t, `Mag Bücher; und "Kaffee"`, people[0].Notes)
	assert.Equal(t, "31.02.1999", people[1].Birthday, "invalid birthdays are passed through")
}

func TestReadCSV_ColumnsByName(t *testing.T) {
	input := "Geburtstag;Nachname;Vorname\n01.02.2003;Meier;Eva\n"

	people, err := exchange.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Eva", people[0].FirstName)
	assert.Equal(t, "Meier", people[0].LastName)
	assert.Equal(t, "01.02.2003", people[0].Birthday)
}

func TestReadCSV_Invalid(t *testing.T) {
	_, err := exchange.ReadCSV(strings.NewReader("Vorname,Nachname\nA,B\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrCSVDelimiter)

	_, err = exchange.ReadCSV(strings.NewReader(sampleHeader))
	require.ErrorIs(t, err, exchange.ErrNoRows)
	assert.Contains(t, err.Error(), config.ErrCSVEmpty)
}

func TestReadCSV_TooLarge(t *testing.T) {
	row := "Anna;Muster;15.03.1990;Familie;anna@example.org;;some notes here padding padding\n"
	var buf bytes.Buffer
	buf.WriteString(sampleHeader)
	for buf.Len() <= config.MaxUploadSize {
		buf.WriteString(row)
	}

	people, err := exchange.ReadCSV(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, exchange.ErrCSVTooLarge)
	assert.Nil(t, people)

	t.Run("exactly at the limit", func(t *testing.T) {
		data := buf.Bytes()[:config.MaxUploadSize]
		data = data[:bytes.LastIndexByte(data, '\n')+1]
		people, err := exchange.ReadCSV(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, strings.Count(string(data), "\n")-1, len(people))
		assert.Equal(t, "some notes here padding padding", people[len(people)-1].Notes)
	})
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	in := []store.Person{
		{FirstName: "Max", LastName: "Mustermann", Birthday: "15.03.1985", Groups: []string{"Familie", "Freunde"}, Notes: "line1\nline2; \"quoted\""},
		{FirstName: "Eva", Birthday: "bad"},
	}

	var buf bytes.Buffer
	require.NoError(t, exchange.WriteCSV(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), config.CSVBOM+sampleHeader), "BOM then header")

	out, err := exchange.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Notes, out[0].Notes)
	assert.Equal(t, in[0].Groups, out[0].Groups)
	assert.Equal(t, "bad", out[1].Birthday)
	assert.Empty(t, out[1].Groups)
}

func TestSampleCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exchange.SampleCSV(&buf))

	rep := exchange.ValidateCSV(buf.Bytes())
	assert.True(t, rep.Valid)
	assert.Equal(t, 3, rep.LineCount)
}
