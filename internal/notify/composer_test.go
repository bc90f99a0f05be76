package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/locale"
)

func newComposer(t *testing.T, lang string) *Composer {
	t.Helper()
	cat, err := locale.Load()
	require.NoError(t, err)
	return NewComposer(cat.Localizer(lang))
}

func celebrant(name, anniversary string, today engine.Date, groups ...string) engine.Ranked {
	c := engine.Contact{DisplayName: name, Anniversary: anniversary, Groups: groups}
	return engine.Ranked{Contact: c, Result: engine.Evaluate(c, today)}
}

var march15 = engine.Date{Year: 2024, Month: time.March, Day: 15}

func TestComposer_DigestLine(t *testing.T) {
	c := newComposer(t, "en")

	assert.Equal(t, "🎂 Anna Muster turns 34", c.DigestLine(celebrant("Anna Muster", "15.03.1990", march15)))
	assert.Equal(t, "🎂 Baby", c.DigestLine(celebrant("Baby", "15.03.2024", march15)), "newborns have no age")
	assert.Equal(t, "🎂 Unknown", c.DigestLine(celebrant("  ", "15.03.1990", march15)))
}

func TestComposer_GroupDigest(t *testing.T) {
	c := newComposer(t, "en")
	people := []engine.Ranked{
		celebrant("Anna Muster", "15.03.1990", march15),
		celebrant("Bob Beispiel", "15.03.1980", march15),
	}

	t.Run("formal", func(t *testing.T) {
		msg := c.GroupDigest("Arbeit", "formal", march15, people)
		assert.Contains(t, msg, "Date: 15.03.2024")
		assert.Contains(t, msg, "Group: Arbeit")
		assert.Contains(t, msg, "🎂 Anna Muster turns 34\n🎂 Bob Beispiel turns 44")
	})

	t.Run("unknown style falls back to formal", func(t *testing.T) {
		assert.Equal(t,
			c.GroupDigest("Arbeit", "formal", march15, people),
			c.GroupDigest("Arbeit", "fancy", march15, people))
	})

	t.Run("casual has no date", func(t *testing.T) {
		msg := c.GroupDigest("Freunde", "casual", march15, people)
		assert.NotContains(t, msg, "15.03.2024")
		assert.Contains(t, msg, "Bob Beispiel")
	})
}

func TestComposer_Localized(t *testing.T) {
	de := newComposer(t, "de")
	en := newComposer(t, "en")

	assert.NotEqual(t, de.Subject("Familie"), en.Subject("Familie"))
	assert.Contains(t, de.Subject("Familie"), "Familie")

	at := time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)
	msg := en.TestMessage("Verein", at)
	assert.Contains(t, msg, "Verein")
	assert.Contains(t, msg, "15.03.2024 08:30")
}

func TestComposer_IndividualAndGreeting(t *testing.T) {
	c := newComposer(t, "en")
	r := celebrant("Anna Muster", "15.03.1990", march15)

	assert.Contains(t, c.Individual("family", r), "turning 34")
	assert.Contains(t, c.Greeting(r), "Anna Muster")
	assert.Contains(t, c.Greeting(r), "34")
}

func TestStyle(t *testing.T) {
	for _, s := range []string{"formal", "casual", "family", "business"} {
		assert.Equal(t, s, Style(s))
	}
	assert.Equal(t, "formal", Style(""))
	assert.Equal(t, "formal", Style("FORMAL"))
}

func TestWhatsAppLink(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		text  string
		want  string
	}{
		{"digits only", "+49 (170) 123-45", "", "https://wa.me/4917012345"},
		{"escaped text", "0170", "Hi & bye?", "https://wa.me/0170?text=Hi%20%26%20bye%3F"},
		{"no phone", "", "🎂", "https://wa.me/?text=%F0%9F%8E%82"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WhatsAppLink(tt.phone, tt.text))
		})
	}
}
