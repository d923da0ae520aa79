package db

// Config describes the relational store backing the service.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	// MetricsInterval is the pool stats refresh period in seconds; 0 disables it.
	MetricsInterval int
}
