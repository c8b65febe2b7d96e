package tracker

import (
	"sort"
	"time"

	"herbtrace/models"
)

// Summary is the header of a tracked batch.
type Summary struct {
	BatchID     string             `json:"batchId"`
	HerbSpecies string             `json:"herbSpecies"`
	Status      models.BatchStatus `json:"status"`
	StatusLabel string             `json:"statusLabel"`
	Creator     string             `json:"creator"`
	EventCount  int                `json:"eventCount"`
	NextStep    string             `json:"nextStep"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

// CollectionPanel shows a harvest record.
type CollectionPanel struct {
	Species        string                  `json:"species"`
	Collector      string                  `json:"collector"`
	CollectorGroup string                  `json:"collectorGroup,omitempty"`
	Weight         *float64                `json:"weight,omitempty"`
	Moisture       *float64                `json:"moisture,omitempty"`
	HarvestDate    string                  `json:"harvestDate,omitempty"`
	Location       string                  `json:"location"`
	Coordinates    string                  `json:"coordinates"`
	PricePerUnit   *float64                `json:"pricePerUnit,omitempty"`
	TotalPrice     *float64                `json:"totalPrice,omitempty"`
	QualityGrade   string                  `json:"qualityGrade,omitempty"`
	Notes          string                  `json:"notes,omitempty"`
	Images         []string                `json:"images,omitempty"`
	Weather        *models.WeatherSnapshot `json:"weather,omitempty"`
}

// QualityTestPanel shows a lab result and its pass/fail badge.
type QualityTestPanel struct {
	Lab            string   `json:"lab,omitempty"`
	Tester         string   `json:"tester,omitempty"`
	Purity         *float64 `json:"purity,omitempty"`
	Moisture       *float64 `json:"moisture,omitempty"`
	PesticideLevel *float64 `json:"pesticideLevel,omitempty"`
	Method         string   `json:"method,omitempty"`
	Parameters     string   `json:"parameters,omitempty"`
	Results        string   `json:"results,omitempty"`
	CertificateURL string   `json:"certificateUrl,omitempty"`
	Location       string   `json:"location"`
	Passed         bool     `json:"passed"`
	Badge          string   `json:"badge"`
}

// ProcessingPanel shows how the batch was processed.
type ProcessingPanel struct {
	Processor   string   `json:"processor,omitempty"`
	Method      string   `json:"method"`
	Temperature *float64 `json:"temperature,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Yield       *float64 `json:"yield,omitempty"`
	Location    string   `json:"location"`
	Steps       string   `json:"steps,omitempty"`
	Output      string   `json:"output,omitempty"`
	Quantity    string   `json:"outputQuantity,omitempty"`
	Machinery   string   `json:"machinery,omitempty"`
	Supervisor  string   `json:"supervisor,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// ManufacturingPanel shows the finished product.
type ManufacturingPanel struct {
	Manufacturer   string   `json:"manufacturer,omitempty"`
	Product        string   `json:"product"`
	BatchSize      string   `json:"batchSize,omitempty"`
	ExpiryDate     string   `json:"expiryDate,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Packaging      string   `json:"packaging,omitempty"`
	Storage        string   `json:"storage,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Location       string   `json:"location"`
}

// Entry is one timeline row. At most one panel is set, matching EventType;
// events of an unknown type carry none.
type Entry struct {
	EventID       string              `json:"eventId"`
	EventType     models.EventType    `json:"eventType"`
	Title         string              `json:"title"`
	Participant   string              `json:"participant"`
	Organization  string              `json:"organization,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	Collection    *CollectionPanel    `json:"collection,omitempty"`
	QualityTest   *QualityTestPanel   `json:"qualityTest,omitempty"`
	Processing    *ProcessingPanel    `json:"processing,omitempty"`
	Manufacturing *ManufacturingPanel `json:"manufacturing,omitempty"`
}

// View is what a tracking lookup renders.
type View struct {
	Summary  Summary `json:"summary"`
	Timeline []Entry `json:"timeline"`
}

// Quality test badges.
const (
	BadgePass = "PASS"
	BadgeFail = "FAIL"
)

// BuildView renders b as a summary and a chronological timeline.
func BuildView(b models.Batch) View {
	v := View{
		Summary: Summary{
			BatchID:     b.BatchID,
			HerbSpecies: b.HerbSpecies,
			Status:      b.CurrentStatus,
			StatusLabel: b.CurrentStatus.Label(),
			Creator:     b.Creator,
			EventCount:  b.EventCount,
			NextStep:    models.NextStep(b.CurrentStatus),
			LastUpdated: b.LastUpdated,
		},
		Timeline: make([]Entry, 0, len(b.Events)),
	}
	for _, e := range b.Events {
		v.Timeline = append(v.Timeline, entry(e))
	}
	sort.SliceStable(v.Timeline, func(i, j int) bool {
		return v.Timeline[i].Timestamp.Before(v.Timeline[j].Timestamp)
	})
	return v
}

func entry(e models.Event) Entry {
	out := Entry{
		EventID:      e.EventID,
		EventType:    e.EventType,
		Title:        e.EventType.Title(),
		Participant:  e.Participant,
		Organization: e.Organization,
		Timestamp:    e.Timestamp,
	}
	d, err := models.DecodeDetails(e)
	if err != nil {
		return out
	}
	switch d := d.(type) {
	case models.CollectionDetails:
		out.Collection = &CollectionPanel{
			Species:        d.HerbSpecies,
			Collector:      d.Collector,
			CollectorGroup: d.CollectorGroup,
			Weight:         d.Weight,
			Moisture:       d.Moisture,
			HarvestDate:    d.HarvestDate,
			Location:       d.LocationName(),
			Coordinates:    d.Coordinates(),
			PricePerUnit:   d.PricePerUnit,
			TotalPrice:     d.TotalPrice,
			QualityGrade:   d.QualityGrade,
			Notes:          d.Notes,
			Images:         d.Images,
			Weather:        d.Weather,
		}
	case models.QualityTestDetails:
		p := &QualityTestPanel{
			Lab:            d.LabName,
			Tester:         d.Tester,
			Purity:         d.Purity,
			Moisture:       d.Moisture,
			PesticideLevel: d.PesticideLevel,
			Method:         d.TestMethod,
			Parameters:     d.Parameters,
			Results:        d.Results,
			CertificateURL: d.CertificateURL,
			Location:       d.LocationName(),
			Passed:         d.Passed(),
			Badge:          BadgeFail,
		}
		if p.Passed {
			p.Badge = BadgePass
		}
		out.QualityTest = p
	case models.ProcessingDetails:
		out.Processing = &ProcessingPanel{
			Processor:   d.Processor,
			Method:      d.MethodName(),
			Temperature: d.Temperature,
			Duration:    d.Duration,
			Yield:       d.Yield,
			Location:    d.LocationName(),
			Steps:       d.Steps,
			Output:      d.Output,
			Quantity:    d.OutputQuantity,
			Machinery:   d.Machinery,
			Supervisor:  d.Supervisor,
			Notes:       d.Notes,
		}
	case models.ManufacturingDetails:
		out.Manufacturing = &ManufacturingPanel{
			Manufacturer:   d.Manufacturer,
			Product:        d.ProductLabel(),
			BatchSize:      d.BatchSize,
			ExpiryDate:     d.ExpiryDate,
			Certifications: d.Certifications,
			Packaging:      d.Packaging,
			Storage:        d.Storage,
			Notes:          d.Notes,
			Location:       d.LocationName(),
		}
	}
	return out
}
