package taxonomy

// TableVersion identifies the revision of the ORPS property class table below.
// Bump it whenever a code is added or reassigned.
const TableVersion = "orps-2024.1"

var classTable = map[int]classEntry{
	100: {"Agricultural", Other},
	105: {"Agricultural Vacant Land (Productive)", Other},
	110: {"Livestock and Products", Other},
	111: {"Poultry and Poultry Products: eggs,chickens, turkeys, ducks and geese", Other},
	112: {"Dairy Products: milk, butter and cheese", Other},
	113: {"Cattle, Calves, Hogs", Other},
	114: {"Sheep and Wool", Other},
	115: {"Honey and Beeswax", Other},
	116: {"Other Livestock: donkeys, goats", Other},
	117: {"Horse Farms", Other},
	120: {"Field Crops", Other},
	129: {"Acquired Development Rights", Other},
	130: {"Truck Crops - Mucklands", Other},
	140: {"Truck Crops - Not Mucklands", Other},
	150: {"Orchard Crops", Other},
	151: {"Apples, Pears, Peaches, Cherries, etc.", Other},
	152: {"Vineyards", Other},
	160: {"Other Fruits", Other},
	170: {"Nursery and Greenhouse", Other},
	180: {"Specialty Farms", Other},
	183: {"Aquatic: oysterlands, fish and aquatic plants", Other},
	184: {"Livestock: deer, moose, llamas, buffalo, etc.", Other},
	190: {"Fish, Game and Wildlife Preserves", Other},
	200: {"Residential", SingleFamily},
	210: {"One Family Year-Round Residence", SingleFamily},
	215: {"One Family Year-Round Residence with Accessory Apartment", SingleFamily},
	220: {"Two Family Year-Round Residence", MultiFamily},
	230: {"Three Family Year-Round Residence", MultiFamily},
	240: {"Rural Residence with Acreage", SingleFamily},
	241: {"Primarily residential, also used in agricultural production", SingleFamily},
	242: {"Recreational use", Other},
	250: {"Estate", SingleFamily},
	260: {"Seasonal Residences", SingleFamily},
	270: {"Mobile Home", ManufacturedHome},
	271: {"Multiple Mobile Homes", ManufacturedHome},
	280: {"Residential - Multi_Purpose/Multi-Structure", SingleFamily},
	281: {"Multiple Residences", MultiFamily},
	283: {"Residence with Incidental Commercial Use", SingleFamily},
	300: {"Vacant Land", LotsAndLand},
	310: {"Residential", SingleFamily},
	311: {"Residential Vacant Land", LotsAndLand},
	312: {"Residential Land Including a Small Improvement", LotsAndLand},
	314: {"Rural Vacant Lots of 10 Acres or less", LotsAndLand},
	315: {"Underwater Vacant Land", Other},
	320: {"Rural", LotsAndLand},
	321: {"Abandoned Agricultural Land", LotsAndLand},
	322: {"Residential Vacant Land Over 10 Acres", LotsAndLand},
	323: {"Other Rural Vacant Lands", LotsAndLand},
	330: {"Vacant Land Located in Commercial Areas", Commercial},
	331: {"Commercial Vacant with minor improvements", Commercial},
	340: {"Vacant Land Located in Industrial Areas", Commercial},
	341: {"Industrial Vacant with minor improvements", Commercial},
	351: {"Shell building - residential", SingleFamily},
	352: {"Shell building - commercial", Commercial},
	380: {"Public Utility Vacant Land", Other},
	400: {"Commercial", Commercial},
	410: {"Living Accomodations", SingleFamily},
	411: {"Apartments", ApartmentCondoTownhouseRow},
	414: {"Hotel", Commercial},
	415: {"Motel", Commercial},
	416: {"Mobile Home Parks", Other},
	417: {"Camps, Cottages, Bungalows", Commercial},
	418: {"Inns, Lodges, Boarding Houses, Tourist Homes, Fraternity and Sorority Homes", Commercial},
	420: {"Dining Establishments", Commercial},
	421: {"Restaurants", Commercial},
	422: {"Diners and Luncheonettes", Commercial},
	423: {"Snack Bars, Drive-Ins, Ice Cream Bars", Commercial},
	424: {"Night Clubs", Commercial},
	425: {"Bar", Commercial},
	426: {"Fast Food Franchises", Commercial},
	430: {"Motor Vehicle Services", Commercial},
	431: {"Auto Dealers - Sales and Service", Commercial},
	432: {"Service and Gas Stations", Commercial},
	433: {"Auto Body, Tire Shops, Other Related Auto Sales", Commercial},
	434: {"Automatic Car Wash", Commercial},
	435: {"Manual Car Wash", Commercial},
	436: {"Self-Service Car Wash", Commercial},
	437: {"Parking Garage", Commercial},
	438: {"Parking Lot", Commercial},
	439: {"Small Parking Garage", Commercial},
	440: {"Storage, Warehouse and Distribution Facilities", Commercial},
	441: {"Fuel Storage and Distribution Facilities", Other},
	442: {"Mini Warehouse (Self-Service Storage)", Commercial},
	443: {"Grain and Feed Elevators, Mixers, Sales Outlets", Other},
	444: {"Lumber Yards, Sawmills", Commercial},
	446: {"Cold Storage Facilities", Commercial},
	447: {"Trucking Terminals", Commercial},
	448: {"Piers, Wharves, Docks and Related Facilities", Other},
	449: {"Other Storage, Warehouse and Distribution Facilities", Commercial},
	450: {"Retail Services", Commercial},
	451: {"Regional Shopping Centers", Commercial},
	452: {"Area of Neighborhood Shopping Centers", Other},
	453: {"Large Retail Outlets", Commercial},
	454: {"Large Retail Food Stores", Commercial},
	455: {"Dealerships - Sales and Service (other than auto)", Commercial},
	456: {"Medium Retail", Commercial},
	457: {"Small Retail", Commercial},
	460: {"Banks and Office Buildings", Commercial},
	461: {"Standard Bank/Single Occupant", Commercial},
	462: {"Drive-In Branch Bank", Commercial},
	463: {"Bank Complex with Office Building", Commercial},
	464: {"Office Building", Commercial},
	465: {"Professional Building", Commercial},
	470: {"Miscellaneous Services", Commercial},
	471: {"Funeral Homes", Commercial},
	472: {"Dog Kennels, Veterinary Clinics", Commercial},
	473: {"Greenhouses", Commercial},
	474: {"Billboards", Other},
	475: {"Junkyards", Other},
	480: {"Multiple Use or Multipurpose", Other},
	481: {"Downtown Row Type (with common wall)", ApartmentCondoTownhouseRow},
	482: {"Downtown Row Type (detached)", SingleFamily},
	483: {"Converted Residence", Other},
	484: {"One Story Small Structure", Other},
	485: {"One Story Small Structure - Multi occupant", Other},
	486: {"Minimart", Commercial},
	500: {"Recreation and Entertainment", Other},
	510: {"Entertainment Assembly", Other},
	511: {"Legitimate Theaters", Commercial},
	512: {"Motion Picture Theaters (excludes drive-in theaters)", Commercial},
	513: {"Drive-In Theaters", Commercial},
	514: {"Auditoriums, Exhibition and Exposition Halls", Commercial},
	515: {"Radio, T.V. and Motion Picture Studios", Commercial},
	521: {"Stadiums, Arenas, Armories, Field Houses", Commercial},
	522: {"Racetracks", Commercial},
	530: {"Amusement Facilities", Other},
	531: {"Fairgrounds", Other},
	532: {"Amusement Parks", Other},
	533: {"Game Farms", Other},
	534: {"Social Organizations", Commercial},
	541: {"Bowling Centers", Commercial},
	542: {"Ice or Roller Skating Rinks", Commercial},
	544: {"Health Spas", Commercial},
	545: {"Indoor Swimming Pools", Commercial},
	546: {"Other Indoor Sports", Commercial},
	551: {"Skiing Centers", Commercial},
	552: {"Public Golf Courses", Commercial},
	553: {"Private Golf Country Clubs", Commercial},
	554: {"Outdoor Swimming Pools", Commercial},
	555: {"Riding Stables", Commercial},
	557: {"Other Outdoor Sports", Commercial},
	560: {"Improved Beaches", Other},
	570: {"Marinas", Commercial},
	580: {"Camps, Camping Facilities and Resorts", Other},
	581: {"Camps", Other},
	582: {"Camping Facilities", Other},
	583: {"Resort Complexes", Other},
	590: {"Parks", Other},
	591: {"Playgrounds", Other},
	592: {"Athletic Fields", Other},
	593: {"Picnic Grounds", Other},
	610: {"Education", Other},
	612: {"Schools", Other},
	613: {"Colleges and Universities", Other},
	614: {"Special Schools and Institutions", Other},
	615: {"Other Educational Facilities", Other},
	620: {"Religious", Other},
	632: {"Benevolent and Moral Associations", Other},
	633: {"Homes for the Aged", Other},
	640: {"Health", Other},
	641: {"Hospitals", Other},
	642: {"All Other Health Facilities", Other},
	651: {"Highway Garage", Other},
	652: {"Office Building", Commercial},
	661: {"Army, Navy, Air Force, Marine and Coast Guard Installations, Radar, etc.", Other},
	662: {"Police and Fire Protection, Electrical Signal Equipment and Other Facilities for Fire, Police, Civil Defense, etc.", Other},
	670: {"Correctional", Other},
	680: {"Cultural and Recreational", Other},
	681: {"Cultural Facilities", Other},
	682: {"Recreational Facilities", Other},
	690: {"Miscellaneous", Other},
	691: {"Professional Associations", Commercial},
	692: {"Roads, Streets, Highways and Parkways, Express or Otherwise Including Adjoining Land", Other},
	694: {"Animal Welfare Shelters", Other},
	695: {"Cemeteries", Other},
	700: {"Industrial", Commercial},
	710: {"Manufacturing and Processing", Commercial},
	712: {"High Tech. Manufacturing and Processing", Commercial},
	714: {"Light Industrial Manufacturing and Processing", Commercial},
	720: {"Mining and Quarrying", Other},
	733: {"Gas (for production)", Other},
	741: {"Gas", Other},
	743: {"Brine", Other},
	744: {"Petroleum Products", Other},
	749: {"Other", Other},
	821: {"Flood Control", Other},
	822: {"Water Supply", Other},
	823: {"Water Treatment Facilities", Other},
	830: {"Communication", Other},
	831: {"Telephone Facility", Other},
	832: {"Telegraph", Other},
	833: {"Radio", Other},
	834: {"Television other than Community Antenna Television", Other},
	835: {"Community Antenna Television (CATV) Facility", Other},
	836: {"Telephone Outside Plant", Other},
	837: {"Cellular Telephone Towers", Other},
	840: {"Transportation", Other},
	841: {"Motor Vehicle", Other},
	842: {"Ceiling Railroad", Other},
	843: {"Nonceiling Railroad", Other},
	844: {"Air", Other},
	850: {"Waste Disposal", Other},
	852: {"Landfills and Dumps", Other},
	853: {"Sewage Treatment and Water Pollution Control", Other},
	872: {"Electric Substation", Other},
	873: {"Gas Measuring and Regulating Station", Other},
	874: {"Electric Power Generation Facility - Hydro", Other},
	875: {"Electric Power Generation Facility - Fossil Fuel", Other},
	877: {"Electric Power Generation Facility - Other Fuel", Other},
	878: {"Electric Power Generation Facility - Solar", Other},
	882: {"Electric Transmission", Other},
	883: {"Gas Transmission", Other},
	885: {"Gas Distribution (Outside Plant Property)", Other},
	910: {"Private Wild and Forest Lands except for Private Hunting and Fishing Clubs", LotsAndLand},
	911: {"Forest Land under Section 480 of the Real Property Tax Law", Other},
	912: {"Forest Land under Section 480-a of the Real Property Tax Law", Other},
	920: {"Private Hunting and Fishing Clubs", Commercial},
	930: {"State Owned Forest Lands", Other},
	932: {"State Owned Land Other Than Forest Preserve Covered under Section 532-b,c,d,e,f,g  of the Real Property Tax Law", Other},
	942: {"County Owned Reforested Land", Other},
	970: {"Other Wild or Conservation Lands", Other},
	971: {"Wetlands, Either Privately of Governmentally Owned, Subject to Specific Restrictions as to Use", Other},
	972: {"Land Under Water, Either Privately of Governmentally Owned (other than residential - more property classified as code 315)", Other},
	980: {"Taxable State Owned Conservation Easements", Other},
}
