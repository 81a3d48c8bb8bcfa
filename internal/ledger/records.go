package ledger

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"

	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
)

var (
	dateRule = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := calendar.ParseDate(s); err != nil {
			return errors.New("must be a date (YYYY-MM-DD)")
		}
		return nil
	})

	timestampRule = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := calendar.ParseTimestamp(s); err != nil {
			return errors.New("must be a date or RFC 3339 timestamp")
		}
		return nil
	})

	decimalRule = validation.By(func(v interface{}) error {
		s, _ := v.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
			return errors.New("must be a decimal number")
		}
		return nil
	})
)

// notAfter checks that a date range is ordered. Both bounds are already
// validated as dates.
func notAfter(start, end string) error {
	if mustDate(start).After(mustDate(end)) {
		return validation.Errors{"end_date": errors.New("must not be before start_date")}
	}
	return nil
}

type userDoc struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Phone1 string `yaml:"phone1"`
	Phone2 string `yaml:"phone2"`
}

func (d *userDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Email, is.EmailFormat),
	)
}

func (d *userDoc) model() models.UserProfile {
	return models.UserProfile{
		ID:     strings.TrimSpace(d.ID),
		Name:   d.Name,
		Email:  strings.TrimSpace(d.Email),
		Phone1: strings.TrimSpace(d.Phone1),
		Phone2: strings.TrimSpace(d.Phone2),
	}
}

type propertyDoc struct {
	ID       string      `yaml:"id"`
	Address1 string      `yaml:"address1"`
	Address2 string      `yaml:"address2"`
	City     string      `yaml:"city"`
	State    string      `yaml:"state"`
	Zip      string      `yaml:"zip"`
	Owners   []string    `yaml:"owners"`
	Profile  *profileDoc `yaml:"profile"`
}

func (d *propertyDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Address1, validation.Required),
		validation.Field(&d.City, validation.Required),
		validation.Field(&d.Owners, validation.Each(validation.Required)),
		validation.Field(&d.Profile),
	)
}

func (d *propertyDoc) model() models.Property {
	p := models.Property{
		ID:       strings.TrimSpace(d.ID),
		Address1: d.Address1,
		Address2: d.Address2,
		City:     d.City,
		State:    d.State,
		Zip:      d.Zip,
		Owners:   append([]string{}, d.Owners...),
	}
	if d.Profile != nil {
		pr := d.Profile.model()
		p.Profile = &pr
	}
	return p
}

type profileDoc struct {
	Type         string     `yaml:"type"`
	Description  string     `yaml:"description"`
	Bedrooms     int        `yaml:"bedrooms"`
	Baths        string     `yaml:"baths"`
	Parking      string     `yaml:"parking"`
	Sqft         int        `yaml:"sqft"`
	LotSizeAcres string     `yaml:"lot_size_acres"`
	Images       []imageDoc `yaml:"images"`
}

func (d *profileDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Type, validation.Required, validation.In(
			models.PropertyTownhome, models.PropertyApartment,
			models.PropertySingleFamily, models.PropertyCondo)),
		validation.Field(&d.Bedrooms, validation.Min(0)),
		validation.Field(&d.Baths, decimalRule),
		validation.Field(&d.Parking, validation.In(
			models.ParkingGarage, models.ParkingStreet,
			models.ParkingCovered, models.ParkingNone)),
		validation.Field(&d.Sqft, validation.Min(0)),
		validation.Field(&d.LotSizeAcres, decimalRule),
		validation.Field(&d.Images),
	)
}

func (d *profileDoc) model() models.PropertyProfile {
	pr := models.PropertyProfile{
		Type:         d.Type,
		Description:  d.Description,
		Bedrooms:     d.Bedrooms,
		Baths:        optDecimal(d.Baths),
		Parking:      d.Parking,
		Sqft:         d.Sqft,
		LotSizeAcres: optDecimal(d.LotSizeAcres),
	}
	if pr.Parking == "" {
		pr.Parking = models.ParkingNone
	}
	for _, img := range d.Images {
		pr.Images = append(pr.Images, models.PropertyImage{Link: img.Link, Caption: img.Caption})
	}
	return pr
}

type imageDoc struct {
	Link    string `yaml:"link"`
	Caption string `yaml:"caption"`
}

func (d imageDoc) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Link, validation.Required, is.URL),
	)
}

type leaseDoc struct {
	ID              string `yaml:"id"`
	Tenant          string `yaml:"tenant"`
	Property        string `yaml:"property"`
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	RentDueDay      int    `yaml:"rent_due_day"`
	DaysGracePeriod int    `yaml:"days_grace_period"`
}

func (d *leaseDoc) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.Tenant, validation.Required),
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.StartDate, validation.Required, dateRule),
		validation.Field(&d.EndDate, validation.Required, dateRule),
		validation.Field(&d.RentDueDay, validation.Required, validation.Min(1), validation.Max(31)),
		validation.Field(&d.DaysGracePeriod, validation.Min(0)),
	); err != nil {
		return err
	}
	return notAfter(d.StartDate, d.EndDate)
}

func (d *leaseDoc) model(id string) models.Lease {
	return models.Lease{
		ID:              id,
		TenantID:        strings.TrimSpace(d.Tenant),
		PropertyID:      strings.TrimSpace(d.Property),
		StartDate:       mustDate(d.StartDate),
		EndDate:         mustDate(d.EndDate),
		RentDueDay:      d.RentDueDay,
		DaysGracePeriod: d.DaysGracePeriod,
	}
}

type contractDoc struct {
	ID        string `yaml:"id"`
	Manager   string `yaml:"manager"`
	Owner     string `yaml:"owner"`
	Property  string `yaml:"property"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

func (d *contractDoc) Validate() error {
	if err := validation.ValidateStruct(d,
		validation.Field(&d.Manager, validation.Required),
		validation.Field(&d.Owner, validation.Required),
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.StartDate, validation.Required, dateRule),
		validation.Field(&d.EndDate, validation.Required, dateRule),
	); err != nil {
		return err
	}
	return notAfter(d.StartDate, d.EndDate)
}

func (d *contractDoc) model(id string) models.ManagementContract {
	return models.ManagementContract{
		ID:         id,
		ManagerID:  strings.TrimSpace(d.Manager),
		OwnerID:    strings.TrimSpace(d.Owner),
		PropertyID: strings.TrimSpace(d.Property),
		StartDate:  mustDate(d.StartDate),
		EndDate:    mustDate(d.EndDate),
	}
}

type maintenanceDoc struct {
	ID             string `yaml:"id"`
	Property       string `yaml:"property"`
	CreatedBy      string `yaml:"created_by"`
	Assignee       string `yaml:"assignee"`
	Headline       string `yaml:"headline"`
	CreationDate   string `yaml:"creation_date"`
	AssignedDate   string `yaml:"assigned_date"`
	ResolutionDate string `yaml:"resolution_date"`
}

func (d *maintenanceDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.CreatedBy, validation.Required),
		validation.Field(&d.Headline, validation.Required),
		validation.Field(&d.CreationDate, validation.Required, dateRule),
		validation.Field(&d.AssignedDate, dateRule),
		validation.Field(&d.ResolutionDate, dateRule),
	)
}

func (d *maintenanceDoc) model(id string) models.MaintenanceRequest {
	return models.MaintenanceRequest{
		ID:             id,
		PropertyID:     strings.TrimSpace(d.Property),
		CreatedByID:    strings.TrimSpace(d.CreatedBy),
		AssigneeID:     strings.TrimSpace(d.Assignee),
		Headline:       d.Headline,
		CreationDate:   mustDate(d.CreationDate),
		AssignedDate:   optDate(d.AssignedDate),
		ResolutionDate: optDate(d.ResolutionDate),
	}
}

type messageDoc struct {
	ID           string   `yaml:"id"`
	UserProfile  string   `yaml:"user_profile"`
	Property     string   `yaml:"property"`
	Sender       string   `yaml:"sender"`
	Recipients   []string `yaml:"recipients"`
	Headline     string   `yaml:"headline"`
	CreationDate string   `yaml:"creation_date"`
	Type         string   `yaml:"type"`
}

func (d *messageDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.UserProfile, validation.Required),
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.Sender, validation.Required),
		validation.Field(&d.CreationDate, validation.Required, timestampRule),
		validation.Field(&d.Type, validation.Required),
	)
}

func (d *messageDoc) model(id string) models.Message {
	recipients := make([]string, 0, len(d.Recipients))
	for _, r := range d.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return models.Message{
		ID:            id,
		UserProfileID: strings.TrimSpace(d.UserProfile),
		PropertyID:    strings.TrimSpace(d.Property),
		Sender:        strings.TrimSpace(d.Sender),
		Recipients:    recipients,
		Headline:      d.Headline,
		CreationDate:  mustTimestamp(d.CreationDate),
		Type:          d.Type,
	}
}

type invoiceDoc struct {
	ID         string    `yaml:"id"`
	Type       string    `yaml:"type"`
	Payer      string    `yaml:"payer"`
	Payee      string    `yaml:"payee"`
	Property   string    `yaml:"property"`
	IssuedDate string    `yaml:"issued_date"`
	DueDate    string    `yaml:"due_date"`
	PaidDate   string    `yaml:"paid_date"`
	Items      []itemDoc `yaml:"items"`
}

func (d *invoiceDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Type, validation.Required),
		validation.Field(&d.Payer, validation.Required),
		validation.Field(&d.Payee, validation.Required),
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.IssuedDate, validation.Required, dateRule),
		validation.Field(&d.DueDate, dateRule),
		validation.Field(&d.PaidDate, dateRule),
		validation.Field(&d.Items),
	)
}

func (d *invoiceDoc) model(id string) models.Invoice {
	inv := models.Invoice{
		ID:         id,
		Type:       strings.TrimSpace(d.Type),
		PayerID:    strings.TrimSpace(d.Payer),
		PayeeID:    strings.TrimSpace(d.Payee),
		PropertyID: strings.TrimSpace(d.Property),
		IssuedDate: mustDate(d.IssuedDate),
		DueDate:    optDate(d.DueDate),
		PaidDate:   optDate(d.PaidDate),
	}
	for _, it := range d.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			Description: it.Description,
			Amount:      optDecimal(it.Amount),
		})
	}
	return inv
}

type itemDoc struct {
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
}

func (d itemDoc) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Amount, validation.Required, decimalRule),
	)
}

type listingDoc struct {
	ID                   string `yaml:"id"`
	Property             string `yaml:"property"`
	Rent                 string `yaml:"rent"`
	AllowPets            *bool  `yaml:"allow_pets"`
	PetFeeFlat           string `yaml:"pet_fee_flat"`
	PetFeePct            string `yaml:"pet_fee_pct"`
	PetRentFlat          string `yaml:"pet_rent_flat"`
	PetRentPct           string `yaml:"pet_rent_pct"`
	MaxPets              int    `yaml:"max_pets"`
	Furnished            bool   `yaml:"furnished"`
	Headline             string `yaml:"headline"`
	Subheadline          string `yaml:"subheadline"`
	Description          string `yaml:"description"`
	LocationDescription  string `yaml:"location_description"`
	AmenitiesDescription string `yaml:"amenities_description"`
	Contact              string `yaml:"contact"`
	Active               bool   `yaml:"active"`
}

func (d *listingDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.Rent, decimalRule),
		validation.Field(&d.PetFeeFlat, decimalRule),
		validation.Field(&d.PetFeePct, decimalRule),
		validation.Field(&d.PetRentFlat, decimalRule),
		validation.Field(&d.PetRentPct, decimalRule),
		validation.Field(&d.MaxPets, validation.Min(0)),
		validation.Field(&d.Headline, validation.Required),
		validation.Field(&d.Description, validation.Required),
		validation.Field(&d.Contact, validation.Required),
	)
}

func (d *listingDoc) model(id string) models.PropertyListing {
	// Pets are allowed unless the listing says otherwise.
	allowPets := d.AllowPets == nil || *d.AllowPets
	return models.PropertyListing{
		ID:                   id,
		PropertyID:           strings.TrimSpace(d.Property),
		Rent:                 optDecimal(d.Rent),
		AllowPets:            allowPets,
		PetFeeFlat:           optDecimal(d.PetFeeFlat),
		PetFeePct:            optDecimal(d.PetFeePct),
		PetRentFlat:          optDecimal(d.PetRentFlat),
		PetRentPct:           optDecimal(d.PetRentPct),
		MaxPets:              d.MaxPets,
		Furnished:            d.Furnished,
		Headline:             d.Headline,
		Subheadline:          d.Subheadline,
		Description:          d.Description,
		LocationDescription:  d.LocationDescription,
		AmenitiesDescription: d.AmenitiesDescription,
		ContactID:            strings.TrimSpace(d.Contact),
		Active:               d.Active,
	}
}

type furnishingDoc struct {
	ID          string `yaml:"id"`
	Owner       string `yaml:"owner"`
	Property    string `yaml:"property"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

func (d *furnishingDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Owner, validation.Required),
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&d.Image, is.URL),
	)
}

func (d *furnishingDoc) model(id string) models.Furnishing {
	return models.Furnishing{
		ID:          id,
		OwnerID:     strings.TrimSpace(d.Owner),
		PropertyID:  strings.TrimSpace(d.Property),
		Name:        d.Name,
		Description: d.Description,
		Image:       strings.TrimSpace(d.Image),
	}
}

type accessDoc struct {
	ID       string `yaml:"id"`
	Property string `yaml:"property"`
	Type     string `yaml:"type"`
	Owner    string `yaml:"owner"`
	Note     string `yaml:"note"`
	Image    string `yaml:"image"`
}

func (d *accessDoc) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Property, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(
			models.AccessKey, models.AccessCode, models.AccessGarageOpener)),
		validation.Field(&d.Owner, validation.Required),
		validation.Field(&d.Note, validation.Length(0, 128)),
		validation.Field(&d.Image, is.URL),
	)
}

func (d *accessDoc) model(id string) models.AccessControl {
	return models.AccessControl{
		ID:         id,
		PropertyID: strings.TrimSpace(d.Property),
		Type:       d.Type,
		OwnerID:    strings.TrimSpace(d.Owner),
		Note:       d.Note,
		Image:      strings.TrimSpace(d.Image),
	}
}
