package store

import (
	"context"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/query"
)

// InsertRow inserts a row built from cells and returns the row as stored by
// the server, identity included. The insert and the describe run
// concurrently.
func (s *Store) InsertRow(ctx context.Context, ref model.TableRef, cells []model.Cell) (model.Row, error) {
	sql, err := query.Insert(ref, cells)
	if err != nil {
		return model.Row{}, err
	}
	return s.returnedRow(ctx, ref, sql)
}

// UpdateRow writes the dirty cells of the row at identity and returns the
// row as stored by the server. The identity of the returned row replaces the
// old one, which no longer addresses it.
func (s *Store) UpdateRow(ctx context.Context, ref model.TableRef, identity string, cells []model.Cell) (model.Row, error) {
	sql, err := query.Update(ref, identity, cells)
	if err != nil {
		return model.Row{}, err
	}
	return s.returnedRow(ctx, ref, sql)
}

func (s *Store) returnedRow(ctx context.Context, ref model.TableRef, sql string) (model.Row, error) {
	res, cols, err := s.execDescribed(ctx, ref, sql)
	if err != nil {
		return model.Row{}, err
	}
	rows, err := s.tableRows(res, cols)
	if err != nil {
		return model.Row{}, err
	}
	if len(rows) == 0 {
		return model.Row{}, errs.Newf(errs.ErrKindNotFound, "no row returned from %s", ref)
	}
	return rows[0], nil
}

// DeleteRows deletes every row addressed by identities in one statement and
// returns the server's count.
func (s *Store) DeleteRows(ctx context.Context, ref model.TableRef, identities []string) (int, error) {
	sql, err := query.Delete(ref, identities)
	if err != nil {
		return 0, err
	}
	res, err := s.exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected), nil
}

// PreviewInsert returns the INSERT InsertRow would run, without running it.
func (s *Store) PreviewInsert(ref model.TableRef, cells []model.Cell) (string, error) {
	return query.Insert(ref, cells)
}

// PreviewUpdate returns the UPDATE UpdateRow would run, without running it.
func (s *Store) PreviewUpdate(ref model.TableRef, identity string, cells []model.Cell) (string, error) {
	return query.Update(ref, identity, cells)
}

// PreviewDelete returns the DELETE DeleteRows would run, without running it.
func (s *Store) PreviewDelete(ref model.TableRef, identities []string) (string, error) {
	return query.Delete(ref, identities)
}
