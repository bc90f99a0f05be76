package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/engine"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// ErrMalformed is returned when the input holds no decodable card at all.
var ErrMalformed = errors.New(config.ErrVCardParse)

// ReadVCards decodes every card of r into a Person.
// Malformed cards are logged and skipped so one bad entry does not lose the rest.
func ReadVCards(ctx context.Context, r io.Reader) ([]store.Person, error) {
	decoder := vcard.NewDecoder(r)
	var people []store.Person
	skipped := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A syntax error leaves the decoder mid-card; there is nothing left to recover.
			if len(people) == 0 && skipped == 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompExchange,
				config.LogKeyError, err)
			break
		}

		p, ok := personFromCard(card)
		if !ok {
			skipped++
			continue
		}
		people = append(people, p)
	}

	slog.Info(config.MsgImportDone,
		config.LogKeyComponent, config.CompExchange,
		config.LogKeyFormat, config.FormatVCard,
		config.LogKeyCount, len(people),
		config.LogKeySkipped, skipped)
	return people, nil
}

// personFromCard maps a card, using N for the name parts and FN as a fallback.
func personFromCard(card vcard.Card) (store.Person, bool) {
	var p store.Person
	if n := card.Name(); n != nil {
		p.FirstName = strings.TrimSpace(n.GivenName)
		p.LastName = strings.TrimSpace(n.FamilyName)
	}
	if p.FirstName == "" && p.LastName == "" {
		fn := strings.TrimSpace(card.Value(vcard.FieldFormattedName))
		if fn == "" {
			return store.Person{}, false
		}
		p.FirstName, p.LastName = splitFormattedName(fn)
	}

	p.Birthday = AnniversaryFromVCard(card.Value(vcard.FieldBirthday))
	p.Email = card.Value(vcard.FieldEmail)
	p.Phone = card.Value(vcard.FieldTelephone)
	p.Notes = card.Value(vcard.FieldNote)
	for _, v := range card.Values(vcard.FieldCategories) {
		p.Groups = append(p.Groups, splitGroups(v)...)
	}
	return p, true
}

// splitFormattedName treats the last word of FN as the family name.
func splitFormattedName(fn string) (first, last string) {
	i := strings.LastIndexByte(fn, ' ')
	if i < 0 {
		return fn, ""
	}
	return strings.TrimSpace(fn[:i]), fn[i+1:]
}

// AnniversaryFromVCard converts full BDAY dates to DD.MM.YYYY.
// Anything else, truncated "--MM-DD" forms included, is returned as is and
// later ranks as undatable.
func AnniversaryFromVCard(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return engine.DateOf(t).String()
		}
	}
	return value
}

// vcardBirthday renders a stored birthday as a vCard 4 date when it is datable.
func vcardBirthday(birthday string) (string, bool) {
	d, err := engine.ParseAnniversary(birthday)
	if err != nil {
		return "", false
	}
	return d.Time(time.UTC).Format(config.DateFormatFullBasic), true
}

// WriteVCards encodes people as vCard 4.0.
func WriteVCards(w io.Writer, people []store.Person) error {
	enc := vcard.NewEncoder(w)

	for _, p := range people {
		card := make(vcard.Card)
		card.SetValue(vcard.FieldFormattedName, p.DisplayName())
		card.SetName(&vcard.Name{GivenName: p.FirstName, FamilyName: p.LastName})
		if p.ID != "" {
			card.SetValue(vcard.FieldUID, p.ID)
		}
		if bday, ok := vcardBirthday(p.Birthday); ok {
			card.SetValue(vcard.FieldBirthday, bday)
		}
		if p.Email != "" {
			card.SetValue(vcard.FieldEmail, p.Email)
		}
		if p.Phone != "" {
			card.SetValue(vcard.FieldTelephone, p.Phone)
		}
		if p.Notes != "" {
			card.SetValue(vcard.FieldNote, p.Notes)
		}
		if len(p.Groups) > 0 {
			card.SetValue(vcard.FieldCategories, strings.Join(p.Groups, config.CSVGroupSep))
		}
		vcard.ToV4(card)

		if err := enc.Encode(card); err != nil {
			return fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
		}
	}
	return nil
}
