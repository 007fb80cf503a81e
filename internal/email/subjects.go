package email

const (
	subjectRequestReceivedFmt = "We received your viewing request for %s"
	subjectAgentAssignedFmt   = "New viewing assigned: %s"
	subjectScheduledFmt       = "Your viewing of %s is scheduled"
	subjectCancelledFmt       = "Your viewing of %s was cancelled"
	subjectReminderFmt        = "Reminder: viewing of %s on %s"
)
