package state

import (
	"database/sql"

	"banana-slides/pkg/models"
)

// Store is the project-store contract the orchestrator and CLI depend
// on. *DB is the SQLite implementation; tests substitute their own.
type Store interface {
	CreateProject(p *models.Project) error
	GetProject(id string) (*models.Project, error)
	UpdateProject(p *models.Project) error
	ListProjects(limit int) ([]*models.Project, error)
	CreateSlides(projectID string, slides []*models.Slide) error
	GetSlides(projectID string) ([]*models.Slide, error)
	SaveCheckpoint(p *models.Project, slides []*models.Slide) error
}

var _ Store = (*DB)(nil)

// CreateProject inserts a new project row.
func (db *DB) CreateProject(p *models.Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (id, prompt, language, requested_pages, template_ref, status, failed_slides, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Prompt, p.Language, p.RequestedPages, nullable(p.TemplateRef), string(p.Status), p.FailedSlides, formatTime(p.CreatedAt))
	if err != nil {
		return &StoreError{Op: "create project", Err: err}
	}
	return nil
}

// GetProject retrieves a project by ID. Returns ErrNotFound if missing.
func (db *DB) GetProject(id string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id, prompt, language, requested_pages, template_ref, status, failed_slides, created_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get project", Err: err}
	}
	return p, nil
}

// UpdateProject updates a project's mutable fields.
func (db *DB) UpdateProject(p *models.Project) error {
	_, err := db.Exec(`
		UPDATE projects SET status = ?, failed_slides = ?, template_ref = ? WHERE id = ?
	`, string(p.Status), p.FailedSlides, nullable(p.TemplateRef), p.ID)
	if err != nil {
		return &StoreError{Op: "update project", Err: err}
	}
	return nil
}

// ListProjects returns the most recently created projects.
func (db *DB) ListProjects(limit int) ([]*models.Project, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT id, prompt, language, requested_pages, template_ref, status, failed_slides, created_at
		FROM projects ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, &StoreError{Op: "list projects", Err: err}
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, &StoreError{Op: "list projects", Err: err}
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list projects", Err: err}
	}
	return projects, nil
}

// CreateSlides inserts the slide rows for a freshly generated outline in
// a single transaction.
func (db *DB) CreateSlides(projectID string, slides []*models.Slide) error {
	err := db.Transaction(func(tx *sql.Tx) error {
		for _, s := range slides {
			_, err := tx.Exec(`
				INSERT INTO slides (project_id, slide_index, title, intent, content, image_path, review_count, feedback, status, last_error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, projectID, s.Index, s.Title, s.Intent, nullable(s.Content), nullable(s.ImagePath),
				s.ReviewCount, nullable(s.Feedback), string(s.Status), nullable(s.LastError))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "create slides", Err: err}
	}
	return nil
}

// GetSlides returns a project's slides in ascending index order.
// Index order is the export order; callers rely on it.
func (db *DB) GetSlides(projectID string) ([]*models.Slide, error) {
	rows, err := db.Query(`
		SELECT project_id, slide_index, title, intent, content, image_path, review_count, feedback, status, last_error
		FROM slides WHERE project_id = ? ORDER BY slide_index ASC
	`, projectID)
	if err != nil {
		return nil, &StoreError{Op: "get slides", Err: err}
	}
	defer rows.Close()

	var slides []*models.Slide
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, &StoreError{Op: "get slides", Err: err}
		}
		slides = append(slides, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "get slides", Err: err}
	}
	return slides, nil
}

// SaveCheckpoint commits the project row and all given slide rows in one
// transaction. Either every update lands or none do, so a crash mid-run
// never leaves a slide inconsistent with its dependents.
func (db *DB) SaveCheckpoint(p *models.Project, slides []*models.Slide) error {
	err := db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE projects SET status = ?, failed_slides = ? WHERE id = ?
		`, string(p.Status), p.FailedSlides, p.ID)
		if err != nil {
			return err
		}

		for _, s := range slides {
			_, err := tx.Exec(`
				UPDATE slides SET content = ?, image_path = ?, review_count = ?, feedback = ?, status = ?, last_error = ?
				WHERE project_id = ? AND slide_index = ?
			`, nullable(s.Content), nullable(s.ImagePath), s.ReviewCount, nullable(s.Feedback),
				string(s.Status), nullable(s.LastError), p.ID, s.Index)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StoreError{Op: "save checkpoint", Err: err}
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*models.Project, error) {
	var p models.Project
	var templateRef sql.NullString
	var createdAt string
	err := row.Scan(&p.ID, &p.Prompt, &p.Language, &p.RequestedPages, &templateRef, &p.Status, &p.FailedSlides, &createdAt)
	if err != nil {
		return nil, err
	}
	p.TemplateRef = templateRef.String
	p.CreatedAt, _ = parseTime(createdAt)
	return &p, nil
}

func scanSlide(row scanner) (*models.Slide, error) {
	var s models.Slide
	var content, imagePath, feedback, lastError sql.NullString
	err := row.Scan(&s.ProjectID, &s.Index, &s.Title, &s.Intent, &content, &imagePath,
		&s.ReviewCount, &feedback, &s.Status, &lastError)
	if err != nil {
		return nil, err
	}
	s.Content = content.String
	s.ImagePath = imagePath.String
	s.Feedback = feedback.String
	s.LastError = lastError.String
	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
