package normalize

import (
	"math"

	"github.com/sells-group/cny-realestate-etl/internal/address"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/taxonomy"
)

// Record validates one assessment-roll record and splits it into its parcel
// and assessment parts. Invalid records return a *ValidationError naming
// every offending field.
func Record(raw map[string]any) (ParcelFragment, AssessmentFragment, error) {
	v := &validator{raw: raw}

	rollYear := v.requiredInt("roll_year", MinimumYear)
	county := v.requiredText("county_name", 6)
	muniCode := v.requiredText("municipality_code", 6)
	muniName := v.requiredText("municipality_name", 2)
	schoolCode := v.requiredText("school_district_code", 6)
	schoolName := v.requiredText("school_district_name", 2)
	swis := v.requiredText("swis_code", 6)
	class := v.requiredInt("property_class", 0)
	classDesc := v.requiredText("property_class_description", 1)
	printKey := v.requiredText("print_key_code", 3)
	number := v.optionalText("parcel_address_number")
	street := v.requiredText("parcel_address_street", 1)
	suffix := v.optionalText("parcel_address_suff")
	front := v.requiredNumber("front", 0)
	depth := v.requiredNumber("depth", 0)
	fmv := v.requiredInt("full_market_value", 0)
	land := v.optionalInt("assessment_land")
	total := v.optionalInt("assessment_total")

	var id string
	if swis != "" && printKey != "" {
		id = model.ParcelID(swis, printKey)
	}
	if err := v.err(id); err != nil {
		return ParcelFragment{}, AssessmentFragment{}, err
	}

	category := taxonomy.Classify(int(class))

	parcel := ParcelFragment{
		Parcel: model.Parcel{
			ID:                 id,
			SwisCode:           swis,
			PrintKeyCode:       printKey,
			MunicipalityCode:   muniCode,
			MunicipalityName:   muniName,
			CountyName:         county,
			SchoolDistrictCode: schoolCode,
			SchoolDistrictName: schoolName,
			AddressStreet:      address.StreetLine(number, street, suffix),
			AddressState:       model.StateNY,
		},
		Mailing: address.Mailing{
			Number: v.optionalText("mailing_address_number"),
			Street: v.optionalText("mailing_address_street"),
			Suffix: v.optionalText("mailing_address_suff"),
			City:   v.optionalText("mailing_address_city"),
			State:  v.optionalText("mailing_address_state"),
			Zip:    v.optionalText("mailing_address_zip"),
			Line:   v.optionalText("mailing_address"),
		},
	}

	fact := AssessmentFragment{
		Assessment: model.Assessment{
			PropertyID:               id,
			RollYear:                 int(rollYear),
			PropertyClass:            int(class),
			PropertyClassDescription: classDesc,
			PropertyCategory:         category.String(),
			Front:                    front,
			Depth:                    depth,
			FullMarketValue:          fmv,
			AssessmentLand:           land,
			AssessmentTotal:          total,
		},
		Category: category,
	}
	return parcel, fact, nil
}

// Ratio validates one municipality assessment ratio record. The ratio is
// rounded to two decimal places.
func Ratio(raw map[string]any) (model.AssessmentRatio, error) {
	v := &validator{raw: raw}

	year := v.requiredInt("rate_year", MinimumYear)
	swis := v.requiredText("swis_code", 6)
	county := v.requiredText("county_name", 6)
	name := v.requiredText("municipality_name", 2)
	ratio := v.requiredNumber("residential_assessment_ratio", 0)

	if err := v.err(swis); err != nil {
		return model.AssessmentRatio{}, err
	}
	return model.AssessmentRatio{
		MunicipalityCode:           swis,
		RateYear:                   int(year),
		MunicipalityName:           name,
		CountyName:                 county,
		ResidentialAssessmentRatio: math.Round(ratio*100) / 100,
	}, nil
}
