package alma

import (
	"encoding/xml"
	"sort"

	"github.com/catalogops/oclcrecon/pkg/bib"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// marcRecord models a MARC XML record closely enough to rewrite its
// identifier fields while carrying every other field through unchanged.
type marcRecord struct {
	XMLName       xml.Name       `xml:"record"`
	Leader        *leaderField   `xml:"leader"`
	Controlfields []controlField `xml:"controlfield"`
	Datafields    []dataField    `xml:"datafield"`
}

type leaderField struct {
	Value string `xml:",chardata"`
}

type controlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type dataField struct {
	Tag       string     `xml:"tag,attr"`
	Ind1      string     `xml:"ind1,attr"`
	Ind2      string     `xml:"ind2,attr"`
	Subfields []subField `xml:"subfield"`
}

type subField struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// ApplyMigration rewrites a record's identifier fields to match a computed
// migration and returns the bib body for UpdateBib. Every 035 field
// holding a recognized OCLC value is removed (including invalid ones — a
// corrupt OCLC 035 must not survive the update), the authoritative number
// is written as a fresh "(OCoLC)" 035, and the migrated numbers replace
// the 019 field. All other fields pass through untouched.
func ApplyMigration(rec Record, m bib.Migration) ([]byte, error) {
	var record marcRecord
	wrapped := append(append([]byte("<record>"), rec.Payload...), []byte("</record>")...)
	if err := xml.Unmarshal(wrapped, &record); err != nil {
		return nil, errors.WrapParse(ServiceName, "xml", err)
	}

	kept := record.Datafields[:0]
	for _, field := range record.Datafields {
		if field.Tag == "019" {
			continue
		}
		if field.Tag == "035" && isOCLCField(field) {
			continue
		}
		kept = append(kept, field)
	}
	record.Datafields = kept

	if len(m.Secondary) > 0 {
		former := dataField{Tag: "019", Ind1: " ", Ind2: " "}
		for _, digits := range m.Secondary {
			former.Subfields = append(former.Subfields, subField{Code: "a", Value: digits})
		}
		record.Datafields = append(record.Datafields, former)
	}

	record.Datafields = append(record.Datafields, dataField{
		Tag:  "035",
		Ind1: " ",
		Ind2: " ",
		Subfields: []subField{
			{Code: "a", Value: oclc.OrgCodePrefix + m.Primary},
		},
	})

	// Keep MARC tag order without disturbing the relative order of
	// repeated fields.
	sort.SliceStable(record.Datafields, func(i, j int) bool {
		return record.Datafields[i].Tag < record.Datafields[j].Tag
	})

	body, err := xml.Marshal(record)
	if err != nil {
		return nil, errors.WrapParse(ServiceName, "xml", err)
	}

	return append(append([]byte("<bib>"), body...), []byte("</bib>")...), nil
}

// isOCLCField reports whether an 035 field belongs to the OCLC workflow:
// a single $a carrying a recognized OCLC value. Fields for other
// identifier systems are not ours to rewrite.
func isOCLCField(field dataField) bool {
	var value string
	count := 0
	for _, sub := range field.Subfields {
		if sub.Code == "a" {
			value = sub.Value
			count++
		}
	}
	return count == 1 && oclc.Recognized(value)
}
