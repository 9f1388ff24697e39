package access

// EntityAccess agrupa los flags de visibilidad de un tipo de entidad.
type EntityAccess struct {
	// El dueño ve sus propios registros.
	UsersCanSeeOwn bool `mapstructure:"users_can_see_own" json:"users_can_see_own" yaml:"users_can_see_own"`

	// SDR ve (y puede reclamar) todos los registros sin dueño.
	SDRCanSeeAllUnassigned bool `mapstructure:"sdr_can_see_all_unassigned" json:"sdr_can_see_all_unassigned" yaml:"sdr_can_see_all_unassigned"`

	// Health coach ve todos los registros sin dueño, sin ventana de tiempo (contactos).
	HealthCoachCanSeeAll bool `mapstructure:"health_coach_can_see_all" json:"health_coach_can_see_all" yaml:"health_coach_can_see_all"`

	// Health coach ve registros sin dueño una vez cumplida la ventana (leads).
	HealthCoachCanSeeUnassigned     bool    `mapstructure:"health_coach_can_see_unassigned" json:"health_coach_can_see_unassigned" yaml:"health_coach_can_see_unassigned"`
	HealthCoachUnassignedAfterHours float64 `mapstructure:"health_coach_unassigned_after_hours" json:"health_coach_unassigned_after_hours" yaml:"health_coach_unassigned_after_hours"`
}

// GlobalAccessConfig es un valor inmutable: se pasa explícito a cada llamada de la policy.
// El holder de config lo reemplaza entero en un hot-reload, nunca lo muta.
type GlobalAccessConfig struct {
	AdminCanSeeAllRecords bool `mapstructure:"admin_can_see_all_records" json:"admin_can_see_all_records" yaml:"admin_can_see_all_records"`

	Lead        EntityAccess `mapstructure:"lead" json:"lead" yaml:"lead"`
	Contact     EntityAccess `mapstructure:"contact" json:"contact" yaml:"contact"`
	Task        EntityAccess `mapstructure:"task" json:"task" yaml:"task"`
	Appointment EntityAccess `mapstructure:"appointment" json:"appointment" yaml:"appointment"`
}

// DefaultGlobalAccessConfig replica los permisos por defecto del CRM.
func DefaultGlobalAccessConfig() GlobalAccessConfig {
	return GlobalAccessConfig{
		AdminCanSeeAllRecords: true,
		Lead: EntityAccess{
			UsersCanSeeOwn:                  true,
			SDRCanSeeAllUnassigned:          true,
			HealthCoachCanSeeUnassigned:     true,
			HealthCoachUnassignedAfterHours: 24,
		},
		Contact: EntityAccess{
			UsersCanSeeOwn:         true,
			SDRCanSeeAllUnassigned: true,
			HealthCoachCanSeeAll:   true,
		},
		Task: EntityAccess{
			UsersCanSeeOwn: true,
		},
		Appointment: EntityAccess{
			UsersCanSeeOwn: true,
		},
	}
}

// For devuelve los flags del tipo; un tipo desconocido devuelve todo en false.
func (c GlobalAccessConfig) For(t EntityType) EntityAccess {
	switch t {
	case EntityLead:
		return c.Lead
	case EntityContact:
		return c.Contact
	case EntityTask:
		return c.Task
	case EntityAppointment:
		return c.Appointment
	default:
		return EntityAccess{}
	}
}

// ConfigSource entrega un snapshot consistente por decisión.
type ConfigSource interface {
	Snapshot() GlobalAccessConfig
}

// StaticConfig es un ConfigSource fijo (tests, o cuando no hay archivo de config).
type StaticConfig GlobalAccessConfig

func (s StaticConfig) Snapshot() GlobalAccessConfig { return GlobalAccessConfig(s) }
