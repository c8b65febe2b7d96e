// Package collection captures new collection events for the ledger.
package collection

import (
	"time"

	"herbtrace/models"
	"herbtrace/weather"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Image is an optional photo attached to a collection.
type Image struct {
	Name    string
	Content []byte
}

// State is one immutable snapshot of the collection form.
type State struct {
	Species        string
	Weight         float64 // kg
	PricePerUnit   float64 // per kg
	TotalPrice     float64 // derived, read-only
	HarvestDate    string  // YYYY-MM-DD
	Zone           string
	QualityGrade   string
	CollectorGroup string
	Notes          string
	Image          *Image
	Location       *models.Location
	Weather        *weather.Reading

	HerbQuery       string
	Suggestions     []models.Herb
	ShowSuggestions bool

	Submitting bool
	Error      string
	Result     *Result
}

// Defaults is the empty form for u: collector group from the user's
// organization (falling back to their name) and today's harvest date.
func Defaults(u *models.User, today time.Time) State {
	s := State{HarvestDate: today.Format(dateLayout)}
	if u != nil {
		s.CollectorGroup = u.Organization
		if s.CollectorGroup == "" {
			s.CollectorGroup = u.Name
		}
	}
	return s
}

// TotalPrice is weight × price per unit rounded half away from zero to cents.
func TotalPrice(weight, pricePerUnit float64) float64 {
	return decimal.NewFromFloat(weight).
		Mul(decimal.NewFromFloat(pricePerUnit)).
		Round(2).
		InexactFloat64()
}

// Action is anything Reduce understands.
type Action interface{ isAction() }

type (
	SpeciesTyped       struct{ Text string }
	HerbSelected       struct{ Herb models.Herb }
	SuggestionsClosed  struct{}
	WeightChanged      struct{ Value float64 }
	PriceChanged       struct{ Value float64 }
	TotalPriceEdited   struct{ Value float64 }
	HarvestDateChanged struct{ Value string }
	ZoneChanged        struct{ Value string }
	GradeChanged       struct{ Value string }
	GroupChanged       struct{ Value string }
	NotesChanged       struct{ Value string }
	ImageAttached      struct{ Image *Image }
	LocationCaptured   struct{ Location models.Location }
	LocationFailed     struct{}
	WeatherCaptured    struct{ Reading weather.Reading }
	SubmitStarted      struct{}
	SubmitFailed       struct{ Err error }
	SubmitSucceeded    struct {
		Result   *Result
		Defaults State
	}
)

func (SpeciesTyped) isAction()       {}
func (HerbSelected) isAction()       {}
func (SuggestionsClosed) isAction()  {}
func (WeightChanged) isAction()      {}
func (PriceChanged) isAction()       {}
func (TotalPriceEdited) isAction()   {}
func (HarvestDateChanged) isAction() {}
func (ZoneChanged) isAction()        {}
func (GradeChanged) isAction()       {}
func (GroupChanged) isAction()       {}
func (NotesChanged) isAction()       {}
func (ImageAttached) isAction()      {}
func (LocationCaptured) isAction()   {}
func (LocationFailed) isAction()     {}
func (WeatherCaptured) isAction()    {}
func (SubmitStarted) isAction()      {}
func (SubmitFailed) isAction()       {}
func (SubmitSucceeded) isAction()    {}

// LocationHelp is shown when no position fix could be obtained.
const LocationHelp = "Unable to get your location. Please enable location services."

// Reduce returns the snapshot that follows s after a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SpeciesTyped:
		s.Species = a.Text
		s.HerbQuery = a.Text
		s.Suggestions = Suggest(a.Text, models.Herbs)
		s.ShowSuggestions = len(s.Suggestions) > 0
	case HerbSelected:
		s.Species = a.Herb.Name
		s.HerbQuery = a.Herb.Name
		s.Suggestions = nil
		s.ShowSuggestions = false
	case SuggestionsClosed:
		s.ShowSuggestions = false
	case WeightChanged:
		s.Weight = a.Value
		s.TotalPrice = TotalPrice(s.Weight, s.PricePerUnit)
	case PriceChanged:
		s.PricePerUnit = a.Value
		s.TotalPrice = TotalPrice(s.Weight, s.PricePerUnit)
	case TotalPriceEdited:
		// read-only: the derived value stands
	case HarvestDateChanged:
		s.HarvestDate = a.Value
	case ZoneChanged:
		s.Zone = a.Value
	case GradeChanged:
		s.QualityGrade = a.Value
	case GroupChanged:
		s.CollectorGroup = a.Value
	case NotesChanged:
		s.Notes = a.Value
	case ImageAttached:
		s.Image = a.Image
	case LocationCaptured:
		loc := a.Location
		s.Location = &loc
		if s.Error == LocationHelp {
			s.Error = ""
		}
	case LocationFailed:
		s.Location = nil
		s.Error = LocationHelp
	case WeatherCaptured:
		r := a.Reading
		s.Weather = &r
	case SubmitStarted:
		s.Submitting = true
		s.Error = ""
		s.Result = nil
	case SubmitFailed:
		s.Submitting = false
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
	case SubmitSucceeded:
		next := a.Defaults
		next.Result = a.Result
		return next
	}
	return s
}
