package push

// Event names consumed from the backend.
const (
	EventChat                    = "chat"
	EventPrevMessages            = "prevMessages"
	EventReloadFriendSection     = "reload friend section"
	EventReloadUserFriendSection = "reload user friend section"
	EventAlertUser               = "alert_user"
	EventReloadFriendRequest     = "reload_friend_request"
	EventReloadGeneralNotif      = "reload_general_notification"
	EventError                   = "error"
	EventSuccess                 = "success"
	EventProfileReload           = "profile reload"
	EventShowGeneralNotifs       = "show_general_notifications"
	EventUserFriendRequests      = "user_friend_requests"
	EventBlurrRead               = "blurr read"
)

// Event names emitted to the backend.
const (
	EmitNewMessage            = "newMessage"
	EmitJoin                  = "join"
	EmitToReloadFriendSection = "to reload friendSection"
	EmitToReloadUserFriends   = "to reload userfriendList"
	EmitSendErrorMessage      = "send error message"
	EmitAcceptedRequest       = "accepted_request"
	EmitDeleteFriendRequest   = "delete friend request"
	EmitAllowedTrack          = "allowed track"
	EmitDisallowedTrack       = "disallowed track"
	EmitReloadProfile         = "reload profile"
	EmitVerifyToDelete        = "verify to delete"
	EmitNewFriendRequest      = "new_friend_request"
	EmitMarkAsRead            = "mark as read"
	EmitGetGeneralNotifs      = "get_general_notifications"
	EmitGetFriendRequests     = "get_friend_requests"
	EmitDeleteAllNotifs       = "delete all user notifications"
)
