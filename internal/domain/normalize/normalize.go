package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/okian/wastesync/internal/domain/model"
	"golang.org/x/text/unicode/norm"
)

// Field aliases for list-of-records input, in precedence order.
var (
	nameAliases = []string{"food_name", "name"}
	massAliases = []string{"disposal_mass", "mass", "weight"}
)

// Result is the outcome of one normalization run.
type Result struct {
	Shape     Shape
	Records   []model.Record
	Dropped   int
	SessionID string // batch-level session id; items may override it per record
}

// Normalizer converts observations into canonical records.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	session SessionFunc
	cleanup bool
}

// New creates a Normalizer. Without options, missing session ids are derived
// from a content fingerprint.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		session: ContentSession(DefaultSessionPrefix),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Normalize runs the default Normalizer. See (*Normalizer).Normalize.
func Normalize(obs any, defaultLocation, defaultSessionID string) ([]model.Record, error) {
	return defaultNormalizer.Normalize(obs, defaultLocation, defaultSessionID)
}

// Normalize returns the canonical records for obs. An empty defaultSessionID
// makes the Normalizer generate one for the batch. Individual malformed
// entries are dropped; only an unsupported shape, or a table cell that
// cannot be read as a number, fails the batch with ErrDataFormat.
func (n *Normalizer) Normalize(obs any, defaultLocation, defaultSessionID string) ([]model.Record, error) {
	res, err := n.Run(obs, defaultLocation, defaultSessionID)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run is Normalize with the run statistics.
func (n *Normalizer) Run(obs any, defaultLocation, defaultSessionID string) (Result, error) {
	o, err := Detect(obs)
	if err != nil {
		return Result{}, err
	}

	sessionID := strings.TrimSpace(defaultSessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(n.session(o))
	}
	if sessionID == "" {
		sessionID = ContentSession(DefaultSessionPrefix)(o)
	}

	p := params{location: strings.TrimSpace(defaultLocation), session: sessionID, cleanup: n.cleanup}
	out, err := o.parse(p)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Shape:     o.Shape(),
		Records:   out.records,
		Dropped:   out.dropped,
		SessionID: sessionID,
	}, nil
}

type params struct {
	location string
	session  string
	cleanup  bool
}

func (p params) text(s string) string {
	if !p.cleanup {
		return s
	}
	return cleanText(s)
}

type parsed struct {
	params
	records []model.Record
	dropped int
}

func newParsed(p params, size int) parsed {
	return parsed{params: p, records: make([]model.Record, 0, size)}
}

// add keeps the entry when the name is non-empty and the mass is a finite
// positive number. NaN fails the comparison and is dropped with the rest.
func (p *parsed) add(name string, mass float64, location, session string) {
	name = p.text(name)
	if name == "" || !(mass > 0) || math.IsInf(mass, 1) {
		p.dropped++
		return
	}
	p.records = append(p.records, model.Record{
		FoodName:     name,
		DisposalMass: mass,
		Location:     location,
		SessionID:    session,
	})
}

func (m Masses) parse(p params) (parsed, error) {
	out := newParsed(p, len(m))
	for _, name := range sortedKeys(m) {
		out.add(name, m[name], p.location, p.session)
	}
	return out, nil
}

func (m Mapping) parse(p params) (parsed, error) {
	out := newParsed(p, len(m))
	for _, name := range sortedKeys(m) {
		mass, ok := toFloat(m[name])
		if !ok {
			out.dropped++
			continue
		}
		out.add(name, mass, p.location, p.session)
	}
	return out, nil
}

func (ps Pairs) parse(p params) (parsed, error) {
	out := newParsed(p, len(ps))
	for _, e := range ps {
		out.add(e.Name, e.Mass, p.location, p.session)
	}
	return out, nil
}

func (it Items) parse(p params) (parsed, error) {
	out := newParsed(p, len(it))
	for _, item := range it {
		if item == nil {
			out.dropped++
			continue
		}
		rawName, ok := firstPresent(item, nameAliases)
		if !ok {
			out.dropped++
			continue
		}
		name, ok := toText(rawName)
		if !ok {
			out.dropped++
			continue
		}
		rawMass, ok := firstPresent(item, massAliases)
		if !ok {
			out.dropped++
			continue
		}
		mass, ok := toFloat(rawMass)
		if !ok {
			out.dropped++
			continue
		}

		location := p.location
		if v, ok := item["location"]; ok {
			if s, ok := toText(v); ok {
				location = p.text(s)
			}
		}
		session := p.session
		if v, ok := item["session_id"]; ok {
			if s, ok := toText(v); ok && strings.TrimSpace(s) != "" {
				session = strings.TrimSpace(s)
			}
		}
		out.add(name, mass, location, session)
	}
	return out, nil
}

func (t Table) parse(p params) (parsed, error) {
	nameCol := orDefault(t.NameColumn, DefaultNameColumn)
	massCol := orDefault(t.MassColumn, DefaultMassColumn)
	locCol := orDefault(t.LocationColumn, DefaultLocationColumn)

	index := make(map[string]int, len(t.Header))
	for i, c := range t.Header {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	nameIdx, ok := index[nameCol]
	if !ok {
		return parsed{}, fmt.Errorf("%w: missing column %q", ErrDataFormat, nameCol)
	}
	massIdx, ok := index[massCol]
	if !ok {
		return parsed{}, fmt.Errorf("%w: missing column %q", ErrDataFormat, massCol)
	}
	locIdx, hasLoc := index[locCol]

	out := newParsed(p, len(t.Data))
	for i, row := range t.Data {
		rawMass := cell(row, massIdx)
		if isBlank(rawMass) {
			out.dropped++
			continue
		}
		mass, ok := toFloat(rawMass)
		if !ok {
			return parsed{}, fmt.Errorf("%w: row %d column %q: cannot read %v as a number",
				ErrDataFormat, i, massCol, rawMass)
		}
		name, _ := toText(cell(row, nameIdx))

		location := p.location
		if hasLoc {
			if s, ok := toText(cell(row, locIdx)); ok {
				location = p.text(s)
			}
		}
		out.add(name, mass, location, p.session)
	}
	return out, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func cell(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

// firstPresent returns the value of the first alias that is set to something
// other than nil, an empty string or zero.
func firstPresent(item map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		v, ok := item[key]
		if !ok || isBlank(v) || isZero(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// isZero reports numeric zero; the text "0" is a value, not an absence.
func isZero(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}
	f, ok := toFloat(v)
	return ok && f == 0
}

// toFloat coerces numbers, numeric strings and json.Number to float64.
// NaN and infinities coerce; callers decide whether they are usable.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.String:
		return toFloat(rv.String())
	default:
		return 0, false
	}
}

// toText accepts strings, fmt.Stringers and numbers.
func toText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String:
		return reflect.ValueOf(v).String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

// cleanText applies NFC and trims surrounding space.
func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
