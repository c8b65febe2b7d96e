package models

// Herb is an entry of the reference list used by the species typeahead.
type Herb struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientificName"`
}

// Herbs is the static reference catalogue.
var Herbs = []Herb{
	{Name: "Ashwagandha", ScientificName: "Withania somnifera"},
	{Name: "Indian Ginseng", ScientificName: "Withania somnifera (ashwagandha root)"},
	{Name: "Tulsi", ScientificName: "Ocimum tenuiflorum"},
	{Name: "Brahmi", ScientificName: "Bacopa monnieri"},
	{Name: "Neem", ScientificName: "Azadirachta indica"},
	{Name: "Turmeric", ScientificName: "Curcuma longa"},
	{Name: "Giloy", ScientificName: "Tinospora cordifolia"},
	{Name: "Shatavari", ScientificName: "Asparagus racemosus"},
	{Name: "Amla", ScientificName: "Phyllanthus emblica"},
	{Name: "Arjuna", ScientificName: "Terminalia arjuna"},
	{Name: "Guggul", ScientificName: "Commiphora wightii"},
	{Name: "Safed Musli", ScientificName: "Chlorophytum borivilianum"},
	{Name: "Jatamansi", ScientificName: "Nardostachys jatamansi"},
	{Name: "Kutki", ScientificName: "Picrorhiza kurroa"},
	{Name: "Licorice", ScientificName: "Glycyrrhiza glabra"},
	{Name: "Gotu Kola", ScientificName: "Centella asiatica"},
	{Name: "Moringa", ScientificName: "Moringa oleifera"},
	{Name: "Senna", ScientificName: "Senna alexandrina"},
}

// QualityGrades accepted on collection.
var QualityGrades = []string{"A", "B", "C", "Premium", "Standard"}

// Zone is a named harvesting area approved for wild collection.
type Zone struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// ApprovedZones lists the areas collections may be recorded against.
var ApprovedZones = []Zone{
	{Name: "Western Ghats", State: "Karnataka"},
	{Name: "Eastern Ghats", State: "Andhra Pradesh"},
	{Name: "Nilgiri Hills", State: "Tamil Nadu"},
	{Name: "Aravalli Range", State: "Rajasthan"},
	{Name: "Kumaon Himalaya", State: "Uttarakhand"},
	{Name: "Satpura Range", State: "Madhya Pradesh"},
	{Name: "Vindhya Range", State: "Madhya Pradesh"},
	{Name: "Chota Nagpur Plateau", State: "Jharkhand"},
}
