// Package campaign drives one messaging run: it resolves each recipient,
// personalizes the message, sends it (or skips sending in dry-run mode),
// and collects the outcomes into a Report.
//
// Recipients are processed strictly one at a time in list order. A failure
// for one recipient is recorded and the run moves on to the next.
package campaign
