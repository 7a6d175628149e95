package state

// Kind selects how an event changes the world
type Kind int

const (
	Noop      Kind = iota
	Add            // insert or replace an entity
	Remove         // delete an entity
	Update         // merge into an entity
	Tickets        // set the tickets of a team
	Reveal         // mark a cache revealed
	Intel          // accumulate intel points
	SquadName      // name a squad
	Append         // append to a log with resolved player references
	Server         // replace the server details
)

var kindNames = map[Kind]string{
	Noop:      "noop",
	Add:       "add",
	Remove:    "remove",
	Update:    "update",
	Tickets:   "tickets",
	Reveal:    "reveal",
	Intel:     "intel",
	SquadName: "squadName",
	Append:    "append",
	Server:    "server",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Ref resolves a player id field of a log record into a player entity
type Ref struct {
	Key   string // key the player is stored under
	IDKey string // record key holding the player id
}

// Rule describes the effect of one event type
type Rule struct {
	Kind     Kind
	Category Category
	// IDKeys are tried in order to find the entity id
	IDKeys []string
	// Omit lists record keys that are not stored, besides the id
	Omit []string
	Log  Log
	Refs []Ref
	// Target is the key written by Tickets rules
	Target string
}

// Rules maps event types to rules
type Rules map[string]Rule

var (
	byID       = []string{"id"}
	byPlayerID = []string{"playerId"}
	byVehicle  = []string{"id", "vehicleId"}
)

// DefaultRules returns the rules for the built-in message table
func DefaultRules() Rules {
	return Rules{
		"playerAdd":        {Kind: Add, Category: Players, IDKeys: byPlayerID},
		"vehicleAdd":       {Kind: Add, Category: Vehicles, IDKeys: byVehicle},
		"fobAdd":           {Kind: Add, Category: Fobs, IDKeys: byID},
		"rallyAdd":         {Kind: Add, Category: Rallies, IDKeys: []string{"groupId"}},
		"cacheAdd":         {Kind: Add, Category: Caches, IDKeys: byID},
		"flagList":         {Kind: Add, Category: Flags, IDKeys: byID},
		"playerRemove":     {Kind: Remove, Category: Players, IDKeys: byPlayerID},
		"vehicleDestroyed": {Kind: Remove, Category: Vehicles, IDKeys: byVehicle},
		"fobRemove":        {Kind: Remove, Category: Fobs, IDKeys: byID},
		"rallyRemove":      {Kind: Remove, Category: Rallies, IDKeys: []string{"groupId"}},
		"cacheRemove":      {Kind: Remove, Category: Caches, IDKeys: byID},
		"playerUpdate":     {Kind: Update, Category: Players, IDKeys: byPlayerID, Omit: []string{"flags"}},
		"vehicleUpdate":    {Kind: Update, Category: Vehicles, IDKeys: byVehicle, Omit: []string{"flags"}},
		"vehicleSeat":      {Kind: Update, Category: Players, IDKeys: byPlayerID},
		"squadLeader":      {Kind: Update, Category: Players, IDKeys: byPlayerID},
		"flagUpdate":       {Kind: Update, Category: Flags, IDKeys: byID},
		"ticketsTeam1":     {Kind: Tickets, Target: "team1"},
		"ticketsTeam2":     {Kind: Tickets, Target: "team2"},
		"cacheReveal":      {Kind: Reveal, Category: Caches, IDKeys: byID},
		"intelChange":      {Kind: Intel},
		"squadName":        {Kind: SquadName},
		"chat": {Kind: Append, Log: Messages, Refs: []Ref{
			{Key: "player", IDKey: "id"},
		}},
		"kill": {Kind: Append, Log: Kills, Refs: []Ref{
			{Key: "victim", IDKey: "victimId"},
			{Key: "attacker", IDKey: "attackerId"},
		}},
		"revive": {Kind: Append, Log: Revives, Refs: []Ref{
			{Key: "victim", IDKey: "victimId"},
			{Key: "medic", IDKey: "medicId"},
		}},
		"kitAllocated": {Kind: Append, Log: Kits, Refs: []Ref{
			{Key: "player", IDKey: "id"},
		}},
		"serverDetails": {Kind: Server},
		"tick":          {Kind: Noop},
		"dateTime":      {Kind: Noop},
		"roundEnd":      {Kind: Noop},
		"projectile":    {Kind: Noop},
	}
}
