// Package session stores game sessions and journals what happens in them.
//
// Manager keeps sessions in memory keyed by a short lowercase hex ID, with
// optional persistence. FilePersistence writes one JSON file per session
// holding its progress; in-flight motion is not saved, so a restored session
// starts its level over.
//
// Journal is a service.Recorder that appends every gameplay event as a
// zstd-compressed JSON line, rotating files every UTC hour. ReadJournal and
// JournalFiles read them back.
//
// Usage:
//
//	fp, err := session.NewFilePersistence("sessions")
//	manager := session.NewManagerWithPersistence(fp, logger)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
//
//	journal := session.NewJournal("journal")
//	defer journal.Close()
package session
