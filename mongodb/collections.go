package mongodb

const (
	UsersCollection         = "users"
	MFADevicesCollection    = "mfa_devices"
	LoginAttemptsCollection = "login_attempts"
)
