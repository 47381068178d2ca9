// Package messaging implements the end-to-end encrypted messaging core.
//
// It composes the identity key pair, the authenticated cipher, and the
// append-only message log into send/receive operations with conversation
// filtering. Messages are encrypted to the recipient's public key before
// they are persisted or handed to the transport collaborator; persisted
// records always hold ciphertext.
//
// Example:
//
//	log, _ := messaging.NewLog(store)
//	mgr := messaging.NewManager(keys, log)
//	msg, err := mgr.SendText("hello", peerPublicKey)
//	if err != nil {
//	    return err
//	}
package messaging
