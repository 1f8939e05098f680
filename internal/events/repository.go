package events

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencircle/backend/internal/models"
)

// View is an event joined with its address, organizer and image, plus the
// viewer's RSVP status when a viewer is given.
type View struct {
	models.Event
	Address          models.Address      `json:"address"`
	OrganizationName string              `json:"organization_name"`
	Image            *models.ResourceRef `json:"image,omitempty"`
	RSVPStatus       *models.RSVPStatus  `json:"rsvp_status,omitempty"`
}

// Repository handles event and address persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the address and the event in one transaction.
func (r *Repository) Create(ctx context.Context, ev *models.Event, addr *models.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO address (country, province, city, barangay, house_building_number,
			country_code, province_code, city_code, barangay_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		addr.Country, addr.Province, addr.City, addr.Barangay, addr.HouseBuildingNumber,
		addr.CountryCode, addr.ProvinceCode, addr.CityCode, addr.BarangayCode).
		Scan(&addr.ID)
	if err != nil {
		return err
	}
	ev.AddressID = addr.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO event (organization_id, title, event_date, address_id, description, image, auto_accept)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_date, last_modified_date`,
		ev.OrganizationID, ev.Title, ev.EventDate, ev.AddressID, ev.Description, ev.Image, ev.AutoAccept).
		Scan(&ev.ID, &ev.CreatedAt, &ev.ModifiedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetByID loads one event row.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	const q = `SELECT id, organization_id, title, event_date, address_id, description, image, auto_accept,
			created_date, last_modified_date
		FROM event WHERE id = $1`
	var ev models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&ev.ID, &ev.OrganizationID, &ev.Title, &ev.EventDate, &ev.AddressID, &ev.Description,
			&ev.Image, &ev.AutoAccept, &ev.CreatedAt, &ev.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Exists reports whether an event id refers to a row.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM event WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

const viewColumns = `e.id, e.organization_id, e.title, e.event_date, e.address_id, e.description,
		e.image, e.auto_accept, e.created_date, e.last_modified_date,
		ad.id, ad.country, ad.province, ad.city, ad.barangay, ad.house_building_number,
		ad.country_code, ad.province_code, ad.city_code, ad.barangay_code,
		o.name, res.id, res.directory, res.filename`

func scanView(row interface{ Scan(...any) error }) (*View, error) {
	var v View
	var resDirectory, resFilename *string
	var resPK *int64
	err := row.Scan(&v.ID, &v.OrganizationID, &v.Title, &v.EventDate, &v.AddressID, &v.Description,
		&v.Event.Image, &v.AutoAccept, &v.CreatedAt, &v.ModifiedAt,
		&v.Address.ID, &v.Address.Country, &v.Address.Province, &v.Address.City, &v.Address.Barangay,
		&v.Address.HouseBuildingNumber, &v.Address.CountryCode, &v.Address.ProvinceCode,
		&v.Address.CityCode, &v.Address.BarangayCode,
		&v.OrganizationName, &resPK, &resDirectory, &resFilename)
	if err != nil {
		return nil, err
	}
	if resPK != nil && resDirectory != nil && resFilename != nil {
		v.Image = &models.ResourceRef{ID: *resPK, Directory: *resDirectory, Filename: *resFilename}
	}
	return &v, nil
}

// GetView loads one event with address, organizer name and image.
func (r *Repository) GetView(ctx context.Context, id int64) (*View, error) {
	q := `SELECT ` + viewColumns + `
		FROM event e
		INNER JOIN address ad ON ad.id = e.address_id
		INNER JOIN org_profile o ON o.id = e.organization_id
		LEFT JOIN resource res ON res.id = e.image
		WHERE e.id = $1`
	return scanView(r.pool.QueryRow(ctx, q, id))
}

// Update rewrites the event and its address in one transaction.
func (r *Repository) Update(ctx context.Context, ev *models.Event, addr *models.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE address SET country = $1, province = $2, city = $3, barangay = $4,
			house_building_number = $5, country_code = $6, province_code = $7,
			city_code = $8, barangay_code = $9
		 WHERE id = $10`,
		addr.Country, addr.Province, addr.City, addr.Barangay, addr.HouseBuildingNumber,
		addr.CountryCode, addr.ProvinceCode, addr.CityCode, addr.BarangayCode, ev.AddressID)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx,
		`UPDATE event SET title = $1, event_date = $2, description = $3, image = $4,
			auto_accept = $5, last_modified_date = NOW()
		 WHERE id = $6
		 RETURNING last_modified_date`,
		ev.Title, ev.EventDate, ev.Description, ev.Image, ev.AutoAccept, ev.ID).
		Scan(&ev.ModifiedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes an event; RSVPs and comments cascade. Returns rows matched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListUpcoming returns future events, newest scheduling first, with the
// viewer's RSVP status attached when viewerAccountID is non-zero.
func (r *Repository) ListUpcoming(ctx context.Context, viewerAccountID int64, limit, offset int) ([]View, error) {
	q := `SELECT ` + viewColumns + `, v.status
		FROM event e
		INNER JOIN address ad ON ad.id = e.address_id
		INNER JOIN org_profile o ON o.id = e.organization_id
		LEFT JOIN resource res ON res.id = e.image
		LEFT JOIN rsvp v ON v.event_id = e.id AND v.attendee = $1
		WHERE e.event_date >= NOW()
		ORDER BY e.event_date ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, viewerAccountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []View
	for rows.Next() {
		var v View
		var resDirectory, resFilename *string
		var resPK *int64
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.Title, &v.EventDate, &v.AddressID, &v.Description,
			&v.Event.Image, &v.AutoAccept, &v.CreatedAt, &v.ModifiedAt,
			&v.Address.ID, &v.Address.Country, &v.Address.Province, &v.Address.City, &v.Address.Barangay,
			&v.Address.HouseBuildingNumber, &v.Address.CountryCode, &v.Address.ProvinceCode,
			&v.Address.CityCode, &v.Address.BarangayCode,
			&v.OrganizationName, &resPK, &resDirectory, &resFilename, &v.RSVPStatus); err != nil {
			return nil, err
		}
		if resPK != nil && resDirectory != nil && resFilename != nil {
			v.Image = &models.ResourceRef{ID: *resPK, Directory: *resDirectory, Filename: *resFilename}
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// ListByOrganization returns an organization's events, split on the given
// instant: upcoming when past is false, finished when true.
func (r *Repository) ListByOrganization(ctx context.Context, organizationID int64, past bool, at time.Time) ([]View, error) {
	q := `SELECT ` + viewColumns + `
		FROM event e
		INNER JOIN address ad ON ad.id = e.address_id
		INNER JOIN org_profile o ON o.id = e.organization_id
		LEFT JOIN resource res ON res.id = e.image
		WHERE e.organization_id = $1
		  AND (($2 AND e.event_date < $3) OR (NOT $2 AND e.event_date >= $3))
		ORDER BY e.event_date ASC`
	rows, err := r.pool.Query(ctx, q, organizationID, past, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}
