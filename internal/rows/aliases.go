package rows

// Column aliases, in lookup order. Keys are in normalized (trimmed,
// lower-case) form.
var (
	InternalIDKeys = []string{
		"referenciaprincipal", "referencia principal", "referencia",
		"codigo pedido", "remito", "orden", "tracking", "nro",
	}

	CarrierIDKeys = []string{
		"codigo pedido", "referencia", "remito", "tracking", "orden", "nro",
	}

	ClientKeys = []string{"razon social", "razonsocial", "cliente", "username"}

	OrphanClientKeys = []string{"cuenta", "remitente", "nombre cliente", "razon social", "empresa"}

	SourceKeys = []string{"fuente"}

	PostalCodeKeys = []string{"codigo postal", "cp"}

	PreparedKeys     = []string{"fecha pi", "fecha_pedido", "fecha_pe", "fecha_preparacion"}
	IngestedKeys     = []string{"fecha ge"}
	DispatchedKeys   = []string{"fecha as"}
	ArrivedKeys      = []string{"fecha ar"}
	FirstVisitKeys   = []string{"fecha 1ra visita"}
	SecondVisitKeys  = []string{"fecha 2da visita"}
	StatusKeys       = []string{"estado"}
	ReasonKeys       = []string{"motivo"}
	SecondReasonKeys = []string{"motivo (2)"}
	ServiceTypeKeys  = []string{"tipo de servicio"}
	ObservationKeys  = []string{"observacion"}
	WeightKeys       = []string{"peso (kg)"}
	SKUKeys          = []string{"sku"}
	ProductNameKeys  = []string{"nombre"}
	QuantityKeys     = []string{"cantidad"}
	LocalityKeys     = []string{"localidad"}
	ProvinceKeys     = []string{"provincia"}
	SLAHoursKeys     = []string{"sla_despacho_horas"}
	SLALocalityKeys  = []string{"descripción urbano", "descripcion urbano"}
	SLAProvinceKeys  = []string{"denom_prov"}
)

const (
	// UnknownClient labels internal rows without a client column
	UnknownClient = "Desconocido"
	// CarrierOnlyClient labels orphan rows without a client column
	CarrierOnlyClient = "[SÓLO EN URBANO]"
	// UndefinedID is the placeholder some exports write for a missing id
	UndefinedID = "undefined"
)

// InternalID extracts the raw identifier of an internal row
func InternalID(r Row) string {
	return r.String(InternalIDKeys...)
}

// Client extracts the client name of a row using keys, falling back to
// def. The result is always upper-cased.
func Client(r Row, keys []string, def string) string {
	name := r.String(keys...)
	if name == "" {
		name = def
	}
	return Upper(name)
}
