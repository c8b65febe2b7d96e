package models

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownEventType is returned for events outside the four stages.
var ErrUnknownEventType = errors.New("unknown event type")

// Quality thresholds a lab result must meet to be shown as passed.
const (
	MinPurityPct    = 95.0
	MaxPesticidePPM = 0.1
)

// Details is the typed view of an event's data, one variant per EventType.
type Details interface {
	Type() EventType
}

// WeatherSnapshot is the reading attached to a collection at capture time.
type WeatherSnapshot struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CollectionDetails is the data recorded when a herb is harvested.
type CollectionDetails struct {
	HerbSpecies    string
	Collector      string
	CollectorGroup string
	Weight         *float64
	PricePerUnit   *float64
	TotalPrice     *float64
	Moisture       *float64
	HarvestDate    string
	Zone           string
	Location       string // free-text location, when the payload carries one
	Latitude       any
	Longitude      any
	GPS            string // pre-formatted position text
	QualityGrade   string
	Notes          string
	Images         []string
	Weather        *WeatherSnapshot
	IPFSHash       string
	QRHash         string
}

func (CollectionDetails) Type() EventType { return EventCollection }

// LocationName prefers the collection zone, then the generic location.
func (d CollectionDetails) LocationName() string {
	return firstNonEmpty(d.Zone, d.Location)
}

// Coordinates formats latitude and longitude, falling back to the GPS text.
func (d CollectionDetails) Coordinates() string {
	if c := FormatCoordinates(d.Latitude, d.Longitude); c != NotAvailable || d.GPS == "" {
		return c
	}
	return d.GPS
}

// QualityTestDetails is a lab result for a collected batch.
type QualityTestDetails struct {
	LabName        string
	Tester         string
	Purity         *float64
	Moisture       *float64
	PesticideLevel *float64
	TestMethod     string
	Parameters     string
	Results        string
	CertificateURL string
	TestLocation   string
	Location       string
}

func (QualityTestDetails) Type() EventType { return EventQualityTest }

// Passed reports whether purity and pesticide level both meet the thresholds.
// Missing measurements never pass.
func (d QualityTestDetails) Passed() bool {
	if d.Purity == nil || d.PesticideLevel == nil {
		return false
	}
	return *d.Purity >= MinPurityPct && *d.PesticideLevel <= MaxPesticidePPM
}

func (d QualityTestDetails) LocationName() string {
	return firstNonEmpty(d.TestLocation, d.Location)
}

// ProcessingDetails describes how a tested batch was processed.
type ProcessingDetails struct {
	Processor          string
	Method             string
	Temperature        *float64
	Duration           string
	Yield              *float64
	Steps              string
	Output             string
	OutputQuantity     string
	Machinery          string
	Supervisor         string
	Notes              string
	ProcessingLocation string
	Location           string
}

func (ProcessingDetails) Type() EventType { return EventProcessing }

func (d ProcessingDetails) LocationName() string {
	return firstNonEmpty(d.ProcessingLocation, d.Location)
}

// MethodName falls back to the recorded steps when no method was given.
func (d ProcessingDetails) MethodName() string {
	return firstNonEmpty(d.Method, d.Steps)
}

// ManufacturingDetails describes the finished product made from a batch.
type ManufacturingDetails struct {
	Manufacturer          string
	ProductName           string
	Product               string
	BatchSize             string
	ExpiryDate            string
	Certifications        []string
	Packaging             string
	Storage               string
	Notes                 string
	ManufacturingLocation string
	Location              string
}

func (ManufacturingDetails) Type() EventType { return EventManufacturing }

func (d ManufacturingDetails) ProductLabel() string {
	return firstNonEmpty(d.ProductName, d.Product)
}

func (d ManufacturingDetails) LocationName() string {
	return firstNonEmpty(d.ManufacturingLocation, d.Location)
}

// DecodeDetails resolves an event's loosely typed data into its variant.
func DecodeDetails(e Event) (Details, error) {
	p := payload(e.Data)
	switch e.EventType {
	case EventCollection:
		d := CollectionDetails{
			HerbSpecies:    p.str("herbSpecies", "species"),
			Collector:      p.str("collector", "collectorName"),
			CollectorGroup: p.str("collectorGroup", "collectorGroupName", "group"),
			Weight:         p.num("weight", "collectedWeight"),
			PricePerUnit:   p.num("pricePerUnit"),
			TotalPrice:     p.num("totalPrice"),
			Moisture:       p.num("moisture"),
			HarvestDate:    p.str("harvestDate"),
			Zone:           p.str("collectionZone", "zone"),
			GPS:            p.str("gpsLocation"),
			QualityGrade:   p.str("qualityGrade", "quality", "grade"),
			Notes:          p.str("notes"),
			Images:         p.strs("images"),
			IPFSHash:       p.str("ipfsHash"),
			QRHash:         p.str("qrHash"),
			Latitude:       p["latitude"],
			Longitude:      p["longitude"],
		}
		if loc, ok := p["location"].(string); ok {
			d.Location = loc
		} else if nested, ok := asMap(p["location"]); ok {
			// nested coordinates override the top-level ones only when present
			if v := nested["latitude"]; v != nil {
				d.Latitude = v
			}
			if v := nested["longitude"]; v != nil {
				d.Longitude = v
			}
			d.Location = nested.str("name", "zone")
			if d.GPS == "" {
				d.GPS = nested.str("gps")
			}
		}
		if w, ok := asMap(p["weather"]); ok {
			d.Weather = &WeatherSnapshot{
				Temperature: w.num("temperature"),
				Humidity:    w.num("humidity"),
				Description: w.str("description"),
			}
		} else if desc := p.str("weather"); desc != "" {
			d.Weather = &WeatherSnapshot{Description: desc}
		}
		return d, nil
	case EventQualityTest:
		return QualityTestDetails{
			LabName:        p.str("labName", "lab"),
			Tester:         p.str("tester", "testerName"),
			Purity:         p.num("purity"),
			Moisture:       p.num("moisture", "moistureContent"),
			PesticideLevel: p.num("pesticideLevel"),
			TestMethod:     p.str("testMethod"),
			Parameters:     p.str("parameters"),
			Results:        p.str("results"),
			CertificateURL: p.str("certificateUrl"),
			TestLocation:   p.str("testLocation"),
			Location:       p.str("location"),
		}, nil
	case EventProcessing:
		return ProcessingDetails{
			Processor:          p.str("processor", "processorName"),
			Method:             p.str("method", "processingMethod"),
			Temperature:        p.num("temperature"),
			Duration:           p.str("duration"),
			Yield:              p.num("yield"),
			Steps:              p.str("steps"),
			Output:             p.str("output"),
			OutputQuantity:     p.str("outputQuantity"),
			Machinery:          p.str("machinery"),
			Supervisor:         p.str("supervisor"),
			Notes:              p.str("notes"),
			ProcessingLocation: p.str("processingLocation"),
			Location:           p.str("location"),
		}, nil
	case EventManufacturing:
		return ManufacturingDetails{
			Manufacturer:          p.str("manufacturer", "manufacturerName"),
			ProductName:           p.str("productName"),
			Product:               p.str("product"),
			BatchSize:             p.str("batchSize"),
			ExpiryDate:            p.str("expiryDate"),
			Certifications:        p.strs("certifications"),
			Packaging:             p.str("packaging"),
			Storage:               p.str("storage", "storageConditions"),
			Notes:                 p.str("notes"),
			ManufacturingLocation: p.str("manufacturingLocation"),
			Location:              p.str("location"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return NotAvailable
}

// payload reads event data tolerating the shapes JSON and BSON decoding produce.
type payload map[string]any

// str returns the first key holding a non-empty scalar, rendered as text.
func (p payload) str(keys ...string) string {
	for _, k := range keys {
		switch v := p[k].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			return v.String()
		default:
			if f, ok := Number(v); ok {
				return fmt.Sprint(f)
			}
		}
	}
	return ""
}

func (p payload) num(keys ...string) *float64 {
	for _, k := range keys {
		if f, ok := Number(p[k]); ok {
			return &f
		}
	}
	return nil
}

func (p payload) strs(key string) []string {
	var items []any
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		items = v
	case primitive.A:
		items = v
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, x := range items {
		if s, ok := x.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asMap accepts nested objects decoded from JSON or from BSON.
func asMap(v any) (payload, bool) {
	switch m := v.(type) {
	case map[string]any:
		return payload(m), true
	case primitive.M:
		return payload(m), true
	}
	return nil, false
}
