// Package store persists an ordered collection of OTP tokens in a single
// password-protected file.
//
// The encryption key is derived from the password with Argon2id using the
// salt and cost parameters recorded in the file header. The collection is
// encrypted with AES-256-GCM, and the header is authenticated as additional
// data, so a wrong password and a tampered file are indistinguishable and
// both report ErrWrongPassword.
//
// Typical use:
//
//	s := store.New(path, store.WithLogger(logger))
//	entries, err := s.Load(password)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	id, _ := s.Insert(token.NewTOTP("example"))
//	err = s.Save()
//
// Saves write a temporary file next to the store, sync it and rename it over
// the previous file.
package store
