package geography

import (
	"strings"
)

// Континенты, на которые отображаются страны
const (
	RegionAfrica       = "Africa"
	RegionAsia         = "Asia"
	RegionEurope       = "Europe"
	RegionNorthAmerica = "North America"
	RegionSouthAmerica = "South America"
	RegionOceania      = "Oceania"
)

// Regions - фиксированный набор регионов
var Regions = []string{
	RegionAfrica,
	RegionAsia,
	RegionEurope,
	RegionNorthAmerica,
	RegionSouthAmerica,
	RegionOceania,
}

// Коды континентов; AN (Антарктида) намеренно не входит в набор регионов
var continentNames = map[string]string{
	"AF": RegionAfrica,
	"AS": RegionAsia,
	"EU": RegionEurope,
	"NA": RegionNorthAmerica,
	"SA": RegionSouthAmerica,
	"OC": RegionOceania,
}

// ISO 3166-1: alpha-3, alpha-2, код континента
const countryTable = `
AFG AF AS
ALA AX EU
ALB AL EU
DZA DZ AF
ASM AS OC
AND AD EU
AGO AO AF
AIA AI NA
ATA AQ AN
ATG AG NA
ARG AR SA
ARM AM AS
ABW AW NA
AUS AU OC
AUT AT EU
AZE AZ AS
BHS BS NA
BHR BH AS
BGD BD AS
BRB BB NA
BLR BY EU
BEL BE EU
BLZ BZ NA
BEN BJ AF
BMU BM NA
BTN BT AS
BOL BO SA
BES BQ NA
BIH BA EU
BWA BW AF
BVT BV AN
BRA BR SA
IOT IO AS
BRN BN AS
BGR BG EU
BFA BF AF
BDI BI AF
CPV CV AF
KHM KH AS
CMR CM AF
CAN CA NA
CYM KY NA
CAF CF AF
TCD TD AF
CHL CL SA
CHN CN AS
CXR CX AS
CCK CC AS
COL CO SA
COM KM AF
COG CG AF
COD CD AF
COK CK OC
CRI CR NA
CIV CI AF
HRV HR EU
CUB CU NA
CUW CW NA
CYP CY AS
CZE CZ EU
DNK DK EU
DJI DJ AF
DMA DM NA
DOM DO NA
ECU EC SA
EGY EG AF
SLV SV NA
GNQ GQ AF
ERI ER AF
EST EE EU
SWZ SZ AF
ETH ET AF
FLK FK SA
FRO FO EU
FJI FJ OC
FIN FI EU
FRA FR EU
GUF GF SA
PYF PF OC
ATF TF AN
GAB GA AF
GMB GM AF
GEO GE AS
DEU DE EU
GHA GH AF
GIB GI EU
GRC GR EU
GRL GL NA
GRD GD NA
GLP GP NA
GUM GU OC
GTM GT NA
GGY GG EU
GIN GN AF
GNB GW AF
GUY GY SA
HTI HT NA
HMD HM AN
VAT VA EU
HND HN NA
HKG HK AS
HUN HU EU
ISL IS EU
IND IN AS
IDN ID AS
IRN IR AS
IRQ IQ AS
IRL IE EU
IMN IM EU
ISR IL AS
ITA IT EU
JAM JM NA
JPN JP AS
JEY JE EU
JOR JO AS
KAZ KZ AS
KEN KE AF
KIR KI OC
PRK KP AS
KOR KR AS
KWT KW AS
KGZ KG AS
LAO LA AS
LVA LV EU
LBN LB AS
LSO LS AF
LBR LR AF
LBY LY AF
LIE LI EU
LTU LT EU
LUX LU EU
MAC MO AS
MDG MG AF
MWI MW AF
MYS MY AS
MDV MV AS
MLI ML AF
MLT MT EU
MHL MH OC
MTQ MQ NA
MRT MR AF
MUS MU AF
MYT YT AF
MEX MX NA
FSM FM OC
MDA MD EU
MCO MC EU
MNG MN AS
MNE ME EU
MSR MS NA
MAR MA AF
MOZ MZ AF
MMR MM AS
NAM NA AF
NRU NR OC
NPL NP AS
NLD NL EU
NCL NC OC
NZL NZ OC
NIC NI NA
NER NE AF
NGA NG AF
NIU NU OC
NFK NF OC
MKD MK EU
MNP MP OC
NOR NO EU
OMN OM AS
PAK PK AS
PLW PW OC
PSE PS AS
PAN PA NA
PNG PG OC
PRY PY SA
PER PE SA
PHL PH AS
PCN PN OC
POL PL EU
PRT PT EU
PRI PR NA
QAT QA AS
REU RE AF
ROU RO EU
RUS RU EU
RWA RW AF
BLM BL NA
SHN SH AF
KNA KN NA
LCA LC NA
MAF MF NA
SPM PM NA
VCT VC NA
WSM WS OC
SMR SM EU
STP ST AF
SAU SA AS
SEN SN AF
SRB RS EU
SYC SC AF
SLE SL AF
SGP SG AS
SXM SX NA
SVK SK EU
SVN SI EU
SLB SB OC
SOM SO AF
ZAF ZA AF
SGS GS AN
SSD SS AF
ESP ES EU
LKA LK AS
SDN SD AF
SUR SR SA
SJM SJ EU
SWE SE EU
CHE CH EU
SYR SY AS
TWN TW AS
TJK TJ AS
TZA TZ AF
THA TH AS
TLS TL AS
TGO TG AF
TKL TK OC
TON TO OC
TTO TT NA
TUN TN AF
TUR TR AS
TKM TM AS
TCA TC NA
TUV TV OC
UGA UG AF
UKR UA EU
ARE AE AS
GBR GB EU
USA US NA
UMI UM OC
URY UY SA
UZB UZ AS
VUT VU OC
VEN VE SA
VNM VN AS
VGB VG NA
VIR VI NA
WLF WF OC
ESH EH AF
YEM YE AS
ZMB ZM AF
ZWE ZW AF
`

var (
	alpha3ToAlpha2    = make(map[string]string)
	alpha2ToContinent = make(map[string]string)
)

func init() {
	for _, line := range strings.Split(countryTable, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		alpha3ToAlpha2[fields[0]] = fields[1]
		alpha2ToContinent[fields[1]] = fields[2]
	}
}

// Alpha3ToAlpha2 переводит трёхбуквенный код страны в двухбуквенный
func Alpha3ToAlpha2(alpha3 string) (string, bool) {
	alpha2, ok := alpha3ToAlpha2[alpha3]
	return alpha2, ok
}

// ContinentName возвращает название региона для двухбуквенного кода страны
func ContinentName(alpha2 string) (string, bool) {
	code, ok := alpha2ToContinent[alpha2]
	if !ok {
		return "", false
	}
	name, ok := continentNames[code]
	return name, ok
}
