// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import "fmt"

// # User-facing Notices

const (
	NoticeUpdated      = "updated"
	NoticeIncremented  = "incremented"
	NoticeDeleted      = "deleted"
	NoticeAlreadyThere = "already in this list"
	NoticeUpdateFailed = "update failed"
	NoticeTryAgain     = "try again"
	NoticeAllLoaded    = "all data loaded"
)

// noticeMoved names the destination bucket of a transfer.
func noticeMoved(status Status, kind Kind) string {
	return fmt.Sprintf("moved to %s", status.Title(kind))
}

func noticeAdded(status Status, kind Kind) string {
	return fmt.Sprintf("added to %s", status.Title(kind))
}
